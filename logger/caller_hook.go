package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// framesToSkip covers runtime.Callers, the hook itself, logrus internals
// and the Entry wrappers in this package.
const framesToSkip = 6

// callerHook rewrites the caller logrus reports so log lines point at the
// call site in venue, processor, chain or writer code instead of at this
// package's wrappers.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(framesToSkip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isLoggingFrame(frame.Function) {
			entry.Caller = &frame
			return nil
		}
		if !more {
			return nil
		}
	}
}

// isLoggingFrame reports whether a stack frame belongs to the logging
// machinery rather than to application code.
func isLoggingFrame(fn string) bool {
	return strings.Contains(fn, "sirupsen/logrus") || strings.Contains(fn, "optionflow/logger")
}
