// Package config loads, normalizes, and validates tubefetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TUBEFETCH_API_TOKEN. Duration knobs are written as human strings ("20s",
// "1m30s", "1d") and parsed once during normalization so downstream code only
// sees time.Duration values.
//
// Always obtain settings through this package so the daemon, the CLI, and the
// download engine agree on binary names, cooldowns, and socket locations.
package config
