// Package session establishes X3DH sessions from pre-key bundles and
// pre-key messages.
//
// The initiator verifies the bundle's signed pre-key, runs the handshake and
// returns the PreKeyMessage to send. The responder resolves the referenced
// pre-keys, consumes the one-time pre-key and derives the same session.
// Resulting states are promoted into a caller-owned session.Record.
package session
