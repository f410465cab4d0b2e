// Package config loads the EVA client configuration from YAML.
//
// ${VAR} references are expanded from the environment before parsing.
// Every field has a default, so the client runs without a config file.
package config
