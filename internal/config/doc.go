// Package config loads, normalizes, and validates Shotbuddy configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHOTBUDDY_PROJECT and SHOTBUDDY_PORT. The Config type centralizes every knob
// the daemon and CLI need so the project directory, state directory, and
// thumbnail settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
