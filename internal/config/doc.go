// Package config loads settings from an optional YAML file and PFORGE_*
// environment variables, applies defaults, and validates the result,
// including the ranking weight bounds.
package config
