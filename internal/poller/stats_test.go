package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/snpnet/internal/monitoring"
	"github.com/banshee-data/snpnet/internal/timeutil"
)

func TestPacketStats_GetAndReset(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ps := NewPacketStats(clock)

	ps.AddReceived(100)
	ps.AddReceived(50)
	ps.AddSent(60)
	ps.AddHandlerError()
	ps.AddDropped()
	clock.Advance(3 * time.Second)

	want := StatsSnapshot{
		RxFrames:      2,
		RxBytes:       150,
		TxFrames:      1,
		TxBytes:       60,
		HandlerErrors: 1,
		Dropped:       1,
		Duration:      3 * time.Second,
	}
	assert.Equal(t, want, ps.GetAndReset())

	clock.Advance(time.Second)
	assert.Equal(t, StatsSnapshot{Duration: time.Second}, ps.GetAndReset())
}

func TestPacketStats_LogStats(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ps := NewPacketStats(clock)

	clock.Advance(time.Second)
	ps.LogStats()
	assert.Empty(t, rec.Logs(), "idle windows are not logged")

	ps.AddReceived(1024)
	ps.AddReceived(1024)
	ps.AddSent(512)
	ps.AddDropped()
	clock.Advance(2 * time.Second)
	ps.LogStats()

	logs := rec.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Frame stats (/sec): rx 1.0 frames 1.00 KB, tx 0.5 frames 0.25 KB, 1 dropped", logs[0])
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, time.Millisecond, p.pollInterval)
	assert.Equal(t, 10*time.Second, p.statsInterval)
	assert.Equal(t, DefaultBurst, p.burst)
	assert.NotNil(t, p.Stats())
	assert.IsType(t, timeutil.RealClock{}, p.clock)
}
