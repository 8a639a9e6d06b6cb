// Package config loads, normalizes, and validates llmproxy configuration.
//
// It supplies repository defaults, reads TOML files, loads a dotenv file, and
// honours environment fallbacks such as LLMPROXY_ENDPOINT and
// LLMPROXY_API_KEY. Process environment wins over the dotenv file, and both
// only fill values the TOML file left empty.
//
// The package never constructs clients itself; callers translate the proxy
// section into the client's own configuration value.
package config
