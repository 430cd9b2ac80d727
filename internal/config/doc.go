// Package config loads runtime settings from defaults, an optional YAML
// file, SESSIONKIT_* environment variables and bound command-line flags,
// in increasing order of precedence.
package config
