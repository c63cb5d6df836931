// Package config loads server settings from a .env file, an optional
// config.yaml and INDEXTTS_-prefixed environment variables, in increasing
// order of precedence, and validates them before the server starts.
package config
