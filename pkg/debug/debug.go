// Package debug provides category-based debug logging for nbgate.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): controlled via NBGATE_DEBUG env or config
//   - Levels (HOW MUCH detail): controlled via NBGATE_LOG_LEVEL env or config
//
// Usage:
//
//	debug.Log("jupyter", "request", "method", "GET", "url", url)
//	if debug.Enabled("kernel") { /* expensive formatting */ }
//
// Categories: jupyter, kernel, interpreter, tools, auth, config, all.
// Levels: ERROR, WARN, INFO, DEBUG.
package debug

import (
	"log/slog"
	"os"
	"strings"
)

// categories holds the set of enabled debug categories.
// Access is read-only after Init(), so no synchronization needed.
var categories map[string]bool

func init() {
	// Initialize from environment for immediate availability.
	// Can be re-initialized later via Init() with config values.
	categories = parseCategories(os.Getenv("NBGATE_DEBUG"))
}

// Init configures the debug system. Called at startup with values from
// config and/or environment. Environment overrides config.
func Init(configCategories, configLevel string) {
	cats := os.Getenv("NBGATE_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv("NBGATE_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate returns s truncated to maxLen characters, with "..." appended
// if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
