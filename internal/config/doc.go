// Package config loads settler configuration from YAML.
//
// Files may reference environment variables with ${VAR}; they are expanded
// before parsing. Use LoadAndValidate in binaries.
package config
