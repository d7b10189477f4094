package logging

import (
	"log"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

var debugEnabled atomic.Bool

// EnableDebug turns on verbose debug logging for the application lifecycle.
func EnableDebug() {
	debugEnabled.Store(true)
	log.Printf("[DEBUG] debug logging enabled")
}

// DebugEnabled reports whether debug logging is active.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf emits a formatted debug log message when debugging is enabled.
func Debugf(format string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// LogInvocation emits details about an external command invocation when
// debugging is enabled. Output is truncated so a chatty provider cannot flood
// the log.
func LogInvocation(name string, args []string, exitCode int, stdout, stderr []byte) {
	if !DebugEnabled() {
		return
	}

	log.Printf("[DEBUG] exec %s %s exited %d", name, strings.Join(args, " "), exitCode)
	if len(stdout) > 0 {
		log.Printf("[DEBUG] --> stdout: %s", Excerpt(stdout, 512))
	}
	if len(stderr) > 0 {
		log.Printf("[DEBUG] --> stderr: %s", Excerpt(stderr, 512))
	}
}

// Excerpt returns a log-safe excerpt of command output, trimmed and capped at
// max bytes on a rune boundary.
func Excerpt(data []byte, max int) string {
	text := strings.TrimSpace(string(data))
	if !utf8.ValidString(text) {
		return "<binary output>"
	}
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max] + "..."
}

// MaskIdentifier obscures sensitive identifiers leaving only the last four characters visible.
func MaskIdentifier(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-4:]
}
