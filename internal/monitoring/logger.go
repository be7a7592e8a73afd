// Package monitoring holds the diagnostic loggers shared by the device
// adapter, the simulated handles and the poll loop.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf receives high-frequency, expected events such as an empty receive
// queue. It is muted by default; SetDebugLogger enables it.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger replaces the debug logger. Passing nil mutes it again.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = f
}

// Capture redirects both loggers into the returned recorder until restore
// is called. It is intended for tests that assert on diagnostics.
func Capture() (rec *Recorder, restore func()) {
	origLog, origDebug := Logf, Debugf
	rec = &Recorder{}
	Logf = rec.logf
	Debugf = rec.debugf
	return rec, func() {
		Logf = origLog
		Debugf = origDebug
	}
}
