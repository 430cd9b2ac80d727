// Package session holds the result of a handshake.
//
// A State is built once by the handshake and handed to the message layer,
// which owns it from then on. A Record keeps the current State of a
// conversation together with a bounded list of archived ones.
//
// # Encoding
//
// Both types serialize to a format-version byte followed by TLV fields
// (tag[1] length[2] value). Keys carry their curve tag so they can be
// rebuilt without outside context. Decoding rejects unknown versions,
// unknown or repeated tags and trailing bytes.
//
// # Security notes
//
// Serialized states contain the root secret, chain keys and the sending
// ratchet private key. Callers must treat the bytes as secret and call
// Wipe when a State is disposed of.
package session
