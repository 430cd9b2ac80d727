// Package identity wraps long-term identity keys.
//
// An identity Key is a public key prefixed with its curve type tag
// (0x05 for X25519, 33 bytes in total). A KeyPair appends the private
// scalar to that encoding (65 bytes). Parsing either form validates the
// embedded point, and parsing a KeyPair also checks that the public half
// is derived from the private half.
package identity
