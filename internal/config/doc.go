// Package config loads, normalizes, and validates the TOML configuration.
//
// Resolution order for the config file: explicit --config flag, then
// ~/.config/subgen/config.toml, then ./subgen.toml. Values not present in
// the file keep repository defaults. The WHISPER_SERVER_URL environment
// variable overrides the file-configured inference endpoint; host plugin
// settings and explicit task arguments are applied later by the callers
// and rank above both.
package config
