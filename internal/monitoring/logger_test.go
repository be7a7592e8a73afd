package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

func TestSetDebugLogger(t *testing.T) {
	original := Debugf
	defer func() { Debugf = original }()

	var got []string
	SetDebugLogger(func(format string, v ...interface{}) {
		got = append(got, format)
	})
	Debugf("rx: %s", "not ready")
	assert.Equal(t, []string{"rx: %s"}, got)

	SetDebugLogger(nil)
	Debugf("muted")
	assert.Len(t, got, 1)
}

func TestCapture(t *testing.T) {
	rec, restore := Capture()

	Logf("error during rx: %v", "device error")
	Debugf("rx queue empty")
	Debugf("rx queue empty again")

	assert.Equal(t, []string{"error during rx: device error"}, rec.Logs())
	assert.Len(t, rec.Debug(), 2)

	rec.Reset()
	assert.Empty(t, rec.Logs())
	assert.Empty(t, rec.Debug())

	restore()
	Logf("after restore")
	assert.Empty(t, rec.Logs())
}
