// Package config loads and validates application settings from an optional
// YAML file and TRADEREADS_* environment variables.
package config
