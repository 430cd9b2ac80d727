// Package prekey manages signed pre-keys and one-time pre-keys for X3DH bootstrap.
//
// It rotates the current SPK, signs it with the identity key and assembles
// the public bundle peers initiate sessions from.
package prekey
