package poller

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/snpnet/internal/monitoring"
	"github.com/banshee-data/snpnet/internal/timeutil"
)

// PacketStats tracks frame statistics with thread-safe operations.
type PacketStats struct {
	mu            sync.Mutex
	clock         timeutil.Clock
	rxFrames      int64
	rxBytes       int64
	txFrames      int64
	txBytes       int64
	handlerErrors int64
	dropped       int64
	lastReset     time.Time
}

// StatsSnapshot is one reporting window of PacketStats.
type StatsSnapshot struct {
	RxFrames      int64
	RxBytes       int64
	TxFrames      int64
	TxBytes       int64
	HandlerErrors int64
	Dropped       int64
	Duration      time.Duration
}

// NewPacketStats creates a new PacketStats instance. A nil clock uses the
// real clock.
func NewPacketStats(clock timeutil.Clock) *PacketStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PacketStats{clock: clock, lastReset: clock.Now()}
}

// AddReceived counts a frame handed to the handler.
func (ps *PacketStats) AddReceived(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.rxFrames++
	ps.rxBytes += int64(bytes)
}

// AddSent counts a frame submitted through a transmit token.
func (ps *PacketStats) AddSent(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.txFrames++
	ps.txBytes += int64(bytes)
}

// AddHandlerError counts a frame the handler failed on.
func (ps *PacketStats) AddHandlerError() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlerErrors++
}

// AddDropped counts an outbound frame that was never submitted.
func (ps *PacketStats) AddDropped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.dropped++
}

// GetAndReset returns current stats and resets counters.
func (ps *PacketStats) GetAndReset() StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.clock.Now()
	s := StatsSnapshot{
		RxFrames:      ps.rxFrames,
		RxBytes:       ps.rxBytes,
		TxFrames:      ps.txFrames,
		TxBytes:       ps.txBytes,
		HandlerErrors: ps.handlerErrors,
		Dropped:       ps.dropped,
		Duration:      now.Sub(ps.lastReset),
	}

	ps.rxFrames, ps.rxBytes = 0, 0
	ps.txFrames, ps.txBytes = 0, 0
	ps.handlerErrors, ps.dropped = 0, 0
	ps.lastReset = now
	return s
}

// LogStats logs the rates for the window since the previous call. Idle
// windows are not logged.
func (ps *PacketStats) LogStats() {
	s := ps.GetAndReset()
	if s.RxFrames == 0 && s.TxFrames == 0 && s.HandlerErrors == 0 && s.Dropped == 0 {
		return
	}
	secs := s.Duration.Seconds()
	if secs <= 0 {
		secs = 1
	}

	msg := fmt.Sprintf("Frame stats (/sec): rx %.1f frames %.2f KB, tx %.1f frames %.2f KB",
		float64(s.RxFrames)/secs, float64(s.RxBytes)/secs/1024,
		float64(s.TxFrames)/secs, float64(s.TxBytes)/secs/1024)
	if s.HandlerErrors > 0 {
		msg += fmt.Sprintf(", %d handler errors", s.HandlerErrors)
	}
	if s.Dropped > 0 {
		msg += fmt.Sprintf(", %d dropped", s.Dropped)
	}
	monitoring.Logf("%s", msg)
}
