package c8emu

import (
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger returns the process logger. debug enables debug messages,
// quiet limits output to errors, and debug wins when both are set. Without
// either the logger writes info and above.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
