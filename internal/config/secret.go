package config

import "os"

// CompiledSecret holds the embedded TWINTRAY_SECRET provided at build time via
// -ldflags. When empty, the application falls back to reading the
// TWINTRAY_SECRET environment variable for local development.
var CompiledSecret string

// ResolveSecret returns the passphrase protecting the configuration file.
func ResolveSecret() string {
	if CompiledSecret != "" {
		return CompiledSecret
	}
	return os.Getenv("TWINTRAY_SECRET")
}
