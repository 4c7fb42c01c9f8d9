// Package env reads raw environment variables for the few knobs that live
// outside the envconfig-managed config (log format, platform-injected PORT).
package env

import "os"

// Get returns the named environment variable, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
