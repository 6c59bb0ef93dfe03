package debug

import (
	"os"
	"strconv"
)

// Config holds debug mode configuration
type Config struct {
	// Enabled is the global debug on/off switch. It forces debug-level logging.
	Enabled bool

	// SingleThreaded runs every discovery fetch on the calling goroutine,
	// in task order
	SingleThreaded bool
}

// Active is the global debug configuration
var Active Config

// Init initializes debug configuration from environment variables
func Init() {
	Active = Config{
		Enabled:        parseBool(os.Getenv("WITNESS_DEBUG"), false),
		SingleThreaded: parseBool(os.Getenv("WITNESS_DEBUG_SINGLE_THREAD"), false),
	}

	// If any debug feature is enabled, ensure global debug is on
	if Active.SingleThreaded {
		Active.Enabled = true
	}
}

func parseBool(s string, defaultVal bool) bool {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// IsEnabled returns whether debug mode is enabled
func IsEnabled() bool {
	return Active.Enabled
}
