package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard library.
// Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - ${DB_HOST}:${DB_PORT} → hostname:port with both variables expanded
//   - ${SOURCE_API_KEY} → value of the SOURCE_API_KEY environment variable
//   - $HTTP_PORT → value of the HTTP_PORT environment variable
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
