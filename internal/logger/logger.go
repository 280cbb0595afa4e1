// Package logger is the single log sink of pidlab: every line carries the
// "pidlab: " prefix and Info output can be silenced with Quiet.
package logger

import (
	"io"
	"log"
	"os"
)

const prefix = "pidlab: "

// Quiet disables Info messages; Warn and Error are always written.
var Quiet bool

var std = log.New(os.Stderr, "", log.LstdFlags)

// SetOutput redirects all log lines.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Info logs progress of a pipeline stage.
func Info(format string, args ...interface{}) {
	if Quiet {
		return
	}
	std.Printf(prefix+format, args...)
}

// Warn logs a non-fatal condition such as an unstable simulation.
func Warn(format string, args ...interface{}) {
	std.Printf(prefix+"warning: "+format, args...)
}

// Error logs a failure that is also returned to the caller.
func Error(format string, args ...interface{}) {
	std.Printf(prefix+"error: "+format, args...)
}
