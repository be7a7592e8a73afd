// Package poller drives a phy.Device from a single goroutine: on every tick
// it drains received frames through a Handler, then sends whatever a Source
// has queued.
package poller

import (
	"context"
	"time"

	"github.com/banshee-data/snpnet/internal/monitoring"
	"github.com/banshee-data/snpnet/internal/phy"
	"github.com/banshee-data/snpnet/internal/timeutil"
)

// DefaultBurst bounds how many frames one tick receives before the loop
// checks for cancellation again.
const DefaultBurst = 64

// Handler processes one received frame. reply is the transmit token paired
// with the frame; it may be consumed from inside HandleFrame or ignored.
// frame is only valid for the duration of the call.
type Handler interface {
	HandleFrame(ts time.Time, frame []byte, reply phy.TxToken) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ts time.Time, frame []byte, reply phy.TxToken) error

// HandleFrame calls f.
func (f HandlerFunc) HandleFrame(ts time.Time, frame []byte, reply phy.TxToken) error {
	return f(ts, frame, reply)
}

// Source supplies outbound frames. NextFrame returns nil when nothing is
// queued.
type Source interface {
	NextFrame(ts time.Time) []byte
}

// Config contains configuration options for the Poller.
type Config struct {
	Device        phy.Device
	Handler       Handler
	Source        Source
	Clock         timeutil.Clock
	Stats         *PacketStats
	PollInterval  time.Duration
	StatsInterval time.Duration
	Burst         int
}

// Poller owns the device for the duration of Run.
type Poller struct {
	dev           phy.Device
	handler       Handler
	source        Source
	clock         timeutil.Clock
	stats         *PacketStats
	pollInterval  time.Duration
	statsInterval time.Duration
	burst         int
}

// New creates a Poller, filling unset fields with defaults.
func New(cfg Config) *Poller {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	stats := cfg.Stats
	if stats == nil {
		stats = NewPacketStats(clock)
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}
	statsInterval := cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 10 * time.Second
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &Poller{
		dev:           cfg.Device,
		handler:       cfg.Handler,
		source:        cfg.Source,
		clock:         clock,
		stats:         stats,
		pollInterval:  pollInterval,
		statsInterval: statsInterval,
		burst:         burst,
	}
}

// Stats returns the poller's counters.
func (p *Poller) Stats() *PacketStats {
	return p.stats
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	pollTicker := p.clock.NewTicker(p.pollInterval)
	defer pollTicker.Stop()
	statsTicker := p.clock.NewTicker(p.statsInterval)
	defer statsTicker.Stop()

	monitoring.Logf("poller started: interval %v, mtu %d", p.pollInterval, p.dev.Capabilities().MaxTransmissionUnit)

	for {
		select {
		case <-ctx.Done():
			p.stats.LogStats()
			monitoring.Logf("poller stopping: %v", ctx.Err())
			return ctx.Err()
		case ts := <-pollTicker.C():
			p.Poll(ts)
		case <-statsTicker.C():
			p.stats.LogStats()
		}
	}
}

// Poll runs one cycle: up to Burst receives, then the transmit queue. It
// reports how many frames were received.
func (p *Poller) Poll(ts time.Time) int {
	received := 0
	for received < p.burst && p.receiveOne(ts) {
		received++
	}
	p.transmitQueued(ts)
	return received
}

func (p *Poller) receiveOne(ts time.Time) bool {
	rx, tx, ok := p.dev.Receive(ts)
	if !ok {
		return false
	}
	reply := &countingTxToken{lower: tx, stats: p.stats}

	err := rx.Consume(func(frame []byte) error {
		p.stats.AddReceived(len(frame))
		if p.handler == nil {
			return nil
		}
		return p.handler.HandleFrame(ts, frame, reply)
	})
	if err != nil {
		p.stats.AddHandlerError()
		monitoring.Logf("Error handling frame: %v", err)
	}
	return true
}

func (p *Poller) transmitQueued(ts time.Time) {
	if p.source == nil {
		return
	}
	mtu := p.dev.Capabilities().MaxTransmissionUnit
	for {
		frame := p.source.NextFrame(ts)
		if frame == nil {
			return
		}
		if len(frame) > mtu {
			p.stats.AddDropped()
			monitoring.Logf("Dropping %d byte outbound frame: exceeds mtu %d", len(frame), mtu)
			continue
		}
		tx, ok := p.dev.Transmit(ts)
		if !ok {
			p.stats.AddDropped()
			return
		}
		_ = tx.Consume(len(frame), func(buf []byte) error {
			copy(buf, frame)
			p.stats.AddSent(len(buf))
			return nil
		})
	}
}

type countingTxToken struct {
	lower phy.TxToken
	stats *PacketStats
}

func (c *countingTxToken) Consume(n int, f func(buf []byte) error) error {
	return c.lower.Consume(n, func(buf []byte) error {
		c.stats.AddSent(n)
		return f(buf)
	})
}

// Queue is a FIFO Source safe for use from other goroutines.
type Queue struct {
	ch chan []byte
}

// NewQueue returns a Queue holding at most size frames.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan []byte, size)}
}

// Enqueue copies frame into the queue. It reports false when the queue is
// full.
func (q *Queue) Enqueue(frame []byte) bool {
	select {
	case q.ch <- append([]byte(nil), frame...):
		return true
	default:
		return false
	}
}

// NextFrame implements Source.
func (q *Queue) NextFrame(time.Time) []byte {
	select {
	case f := <-q.ch:
		return f
	default:
		return nil
	}
}
