// Package logger reports the packer CLI's fatal errors and warnings on
// stderr. It exists only because cmd/tardis needs one terminating point
// that a test can intercept instead of killing the test binary; it is
// not a general-purpose logging facility.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger writes "tardis: "-prefixed messages to an underlying
// log.Logger and controls how the process terminates on a fatal error.
type Logger struct {
	out *log.Logger

	// TestOnlyPanicInsteadOfExit redirects Exit to a panic carrying the
	// exit code, recording the attempt in TestOnlyDidExit, so a test can
	// recover() the code instead of the exit killing the test binary.
	TestOnlyPanicInsteadOfExit bool
	TestOnlyDidExit            bool
}

var Global = &Logger{out: log.New(os.Stderr, "tardis: ", 0)}

// Exit ends the process with code, unless redirected for a test.
func (l *Logger) Exit(code int) {
	if l.TestOnlyPanicInsteadOfExit {
		l.TestOnlyDidExit = true
		panic(code)
	}
	os.Exit(code)
}

// Errorf reports a fatal condition and exits with status 1.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.out.Print("error: " + fmt.Sprintf(format, args...))
	l.Exit(1)
}

// Warningf reports a non-fatal condition; the caller decides whether
// to continue.
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.out.Print("warning: " + fmt.Sprintf(format, args...))
}
