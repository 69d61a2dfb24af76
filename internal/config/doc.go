// Package config provides configuration loading and validation for the
// prescription voice assistant. It reads a YAML file with ${VAR} references
// expanded from the environment (and from a .env file when present),
// applies defaults and validates every section.
package config
