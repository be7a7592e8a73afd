package monitoring

import (
	"fmt"
	"sync"
)

// Recorder collects formatted log lines, split by level.
type Recorder struct {
	mu    sync.Mutex
	logs  []string
	debug []string
}

func (r *Recorder) logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, fmt.Sprintf(format, v...))
}

func (r *Recorder) debugf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, fmt.Sprintf(format, v...))
}

// Logs returns a copy of the lines written through Logf.
func (r *Recorder) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.logs...)
}

// Debug returns a copy of the lines written through Debugf.
func (r *Recorder) Debug() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.debug...)
}

// Reset drops all recorded lines.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = nil
	r.debug = nil
}
