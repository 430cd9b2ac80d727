// Package commands defines the sessionkit CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create the local identity
//   - fingerprint  Print the identity fingerprint
//   - prekeys      Generate a signed pre-key and one-time pre-keys, print the bundle
//   - initiate     Start a session from a peer's pre-key bundle
//   - respond      Complete a session from a peer's pre-key message
//   - selftest     Run a local handshake between two throwaway identities
//
// # Implementation
//
// The root command resolves configuration (flags, SESSIONKIT_* environment,
// optional config.yaml) and builds the dependency graph before any subcommand
// runs, so handlers share a single app.Wire.
package commands
