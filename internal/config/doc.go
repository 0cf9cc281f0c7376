// Package config loads, normalizes, and validates explainer configuration.
//
// It supplies repository defaults, reads TOML files, expands user paths and
// resolves theme colors given as CSS names into hex literals. The timing
// numbers the timeline compiler needs and the theme the engines are
// initialized with are both derived from one Config, so they are enumerated
// once and threaded explicitly.
package config
