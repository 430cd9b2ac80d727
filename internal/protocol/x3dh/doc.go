// Package x3dh turns the key material of one side of a handshake into the
// initial session state.
//
// # Flows
//
// Initiator:
//  1. Collect our identity and base key pairs and the peer's identity key,
//     signed pre-key, optional one-time pre-key and ratchet key into
//     InitiatorParameters.
//  2. Compute DH(IKa, SPKb), DH(EKa, IKb), DH(EKa, SPKb)[, DH(EKa, OPKb)].
//  3. HKDF the discriminator followed by the DH outputs into a root secret
//     and a chain key.
//  4. Generate a sending ratchet key and step the root once against the
//     peer's ratchet key.
//
// Responder:
//  1. Collect our identity, signed pre-key, optional one-time pre-key and
//     ratchet key pairs with the peer's identity and base keys into
//     ResponderParameters.
//  2. Compute DH(SPKb, IKa), DH(IKb, EKa), DH(SPKb, EKa)[, DH(OPKb, EKa)].
//  3. Derive the same root secret and chain key; the chain key becomes our
//     sending chain on the ratchet key.
//
// Both sides must agree out of band on whether a one-time pre-key was used.
// A mismatch produces different secrets and is not detected here.
//
// # Errors
//
// ErrSessionInitialization is returned when a parameter is missing or a DH
// or KDF step fails. Malformed keys surface as curve.ErrInvalidKey.
package x3dh
