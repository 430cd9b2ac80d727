// Package curve holds the Diffie-Hellman key material used by the handshake.
//
// # Contents
//
//   - Curve, the injected DH capability (point validation, scalar
//     generation, public derivation, agreement). X25519 is the production
//     implementation; tests may register a deterministic stand-in.
//   - PublicKey, PrivateKey and KeyPair, immutable values bound to a Curve.
//   - DH, the symmetric agreement between a private and a public key.
//   - CalculateSignature / VerifySignature for curves that also sign
//     (X25519 signs with XEdDSA).
//
// # Notes
//
// Public keys are validated when constructed, so a PublicKey value that is
// not the zero value always holds a usable point. Private keys are checked
// for length only. Every failure wraps ErrInvalidKey.
package curve
