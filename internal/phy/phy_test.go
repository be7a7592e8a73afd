package phy_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/snpnet/internal/monitoring"
	"github.com/banshee-data/snpnet/internal/phy"
	"github.com/banshee-data/snpnet/internal/snp"
	"github.com/banshee-data/snpnet/internal/snpdev"
	"github.com/banshee-data/snpnet/internal/testutil"
)

var ts = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func newDevice(t *testing.T) (*snpdev.Device, *snp.MockSimpleNetwork) {
	t.Helper()
	handle := snp.NewMockSimpleNetwork(testutil.LocalMAC, 1500)
	dev, err := snpdev.New(handle)
	require.NoError(t, err)
	return dev, handle
}

func TestEthernetAddress(t *testing.T) {
	a, err := phy.ParseEthernetAddress("02:00:5e:10:00:01")
	require.NoError(t, err)
	assert.Equal(t, testutil.LocalMAC, a.HardwareAddr())
	assert.True(t, a.IsUnicast())
	assert.True(t, a.IsLocal())
	assert.False(t, a.IsBroadcast())

	assert.True(t, phy.BroadcastAddress.IsBroadcast())
	assert.True(t, phy.BroadcastAddress.IsMulticast())

	_, err = phy.EthernetAddressFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = phy.ParseEthernetAddress("not-a-mac")
	assert.Error(t, err)
}

func TestMedium_String(t *testing.T) {
	assert.Equal(t, "ethernet", phy.MediumEthernet.String())
	assert.Equal(t, "ip", phy.MediumIP.String())
	assert.Equal(t, "Medium(7)", phy.Medium(7).String())
}

func TestConsumeHelpers(t *testing.T) {
	dev, handle := newDevice(t)
	handle.AddFrame([]byte{1, 2, 3, 4})

	rx, tx, ok := dev.Receive(ts)
	require.True(t, ok)
	sum := phy.ConsumeRx(rx, func(buf []byte) int {
		s := 0
		for _, b := range buf {
			s += int(b)
		}
		return s
	})
	assert.Equal(t, 10, sum)

	n := phy.ConsumeTx(tx, 3, func(buf []byte) int { return copy(buf, "abc") })
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("abc"), handle.Transmitted[0])
}

func TestDescribe(t *testing.T) {
	arp := testutil.ARPRequest(t, testutil.RemoteMAC, testutil.RemoteIP, testutil.LocalIP)
	got := phy.Describe(arp, phy.MediumEthernet)
	assert.True(t, strings.HasPrefix(got, "Ethernet/ARP request "), got)
	assert.Contains(t, got, "02:00:5e:10:00:02->ff:ff:ff:ff:ff:ff")
	assert.True(t, strings.HasSuffix(got, "len=60"), got)
}

func TestTracer_ReportsBothDirections(t *testing.T) {
	dev, handle := newDevice(t)
	frame := testutil.EthernetFrame(t, testutil.LocalMAC, testutil.RemoteMAC, layers.EthernetTypeIPv4, testutil.Pattern(80, 0))
	handle.AddFrame(frame)

	type event struct {
		dir   phy.Direction
		frame []byte
	}
	var events []event
	tracer := phy.NewTracer(dev, func(at time.Time, dir phy.Direction, f []byte) {
		assert.Equal(t, ts, at)
		events = append(events, event{dir, append([]byte(nil), f...)})
	})
	assert.Equal(t, dev.Capabilities(), tracer.Capabilities())

	rx, tx, ok := tracer.Receive(ts)
	require.True(t, ok)
	require.NoError(t, rx.Consume(func(buf []byte) error {
		return tx.Consume(len(buf), func(out []byte) error {
			copy(out, buf)
			return nil
		})
	}))

	tx, ok = tracer.Transmit(ts)
	require.True(t, ok)
	require.NoError(t, tx.Consume(2, func(out []byte) error {
		out[0], out[1] = 0xde, 0xad
		return nil
	}))

	require.Len(t, events, 3)
	assert.Equal(t, phy.DirectionRx, events[0].dir)
	assert.Equal(t, frame, events[0].frame)
	assert.Equal(t, phy.DirectionTx, events[1].dir)
	assert.Equal(t, frame, events[1].frame)
	assert.Equal(t, []byte{0xde, 0xad}, events[2].frame)

	_, _, ok = tracer.Receive(ts)
	assert.False(t, ok)
}

func TestTracer_DefaultLogsSummary(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	dev, handle := newDevice(t)
	handle.AddFrame(testutil.ARPRequest(t, testutil.RemoteMAC, testutil.RemoteIP, testutil.LocalIP))

	tracer := phy.NewTracer(dev, nil)
	rx, _, ok := tracer.Receive(ts)
	require.True(t, ok)
	require.NoError(t, rx.Consume(func([]byte) error { return nil }))

	logs := rec.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "09:30:00.000000 rx "+phy.Describe(handle.Frames[0].Data, phy.MediumEthernet), logs[0])
}

func TestParsePcapMode(t *testing.T) {
	for in, want := range map[string]phy.PcapMode{"": phy.PcapBoth, "both": phy.PcapBoth, "RX": phy.PcapRxOnly, "tx": phy.PcapTxOnly} {
		got, err := phy.ParsePcapMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := phy.ParsePcapMode("sideways")
	assert.Error(t, err)
}

func TestPcapWriter_Modes(t *testing.T) {
	rxFrame := testutil.Pattern(64, 1)
	txFrame := testutil.Pattern(46, 2)

	tests := []struct {
		mode phy.PcapMode
		want [][]byte
	}{
		{phy.PcapBoth, [][]byte{rxFrame, txFrame}},
		{phy.PcapRxOnly, [][]byte{rxFrame}},
		{phy.PcapTxOnly, [][]byte{txFrame}},
	}
	for _, tt := range tests {
		dev, handle := newDevice(t)
		handle.AddFrame(rxFrame)

		var out bytes.Buffer
		pw, err := phy.NewPcapWriter(dev, &out, tt.mode)
		require.NoError(t, err)

		rx, _, ok := pw.Receive(ts)
		require.True(t, ok)
		require.NoError(t, rx.Consume(func([]byte) error { return nil }))

		tx, ok := pw.Transmit(ts)
		require.True(t, ok)
		require.NoError(t, tx.Consume(len(txFrame), func(buf []byte) error {
			copy(buf, txFrame)
			return nil
		}))

		assert.Equal(t, tt.want, testutil.ReadPcap(t, out.Bytes()))
		assert.Equal(t, len(tt.want), pw.Captured())
		assert.Equal(t, [][]byte{txFrame}, handle.Transmitted)
	}
}

func TestPcapWriter_FrameLongerThanMTU(t *testing.T) {
	handle := snp.NewMockSimpleNetwork(testutil.LocalMAC, 100)
	dev, err := snpdev.New(handle)
	require.NoError(t, err)
	require.Equal(t, 100, dev.Capabilities().MaxTransmissionUnit)

	rxFrame := testutil.Pattern(200, 3)
	txFrame := testutil.Pattern(300, 4)
	handle.AddFrame(rxFrame)

	var out bytes.Buffer
	pw, err := phy.NewPcapWriter(dev, &out, phy.PcapBoth)
	require.NoError(t, err)

	rx, tx, ok := pw.Receive(ts)
	require.True(t, ok)
	require.NoError(t, rx.Consume(func([]byte) error {
		return tx.Consume(len(txFrame), func(buf []byte) error {
			copy(buf, txFrame)
			return nil
		})
	}))

	assert.Equal(t, 2, pw.Captured())
	assert.Equal(t, [][]byte{rxFrame, txFrame}, testutil.ReadPcap(t, out.Bytes()))
}

type failingWriter struct {
	calls int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.calls == 1 {
		return len(p), nil // file header
	}
	return 0, errors.New("disk full")
}

func TestPcapWriter_WriteFailureIsLogged(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	dev, handle := newDevice(t)
	pw, err := phy.NewPcapWriter(dev, &failingWriter{}, phy.PcapBoth)
	require.NoError(t, err)

	tx, _ := pw.Transmit(ts)
	require.NoError(t, tx.Consume(10, func([]byte) error { return nil }))

	assert.Len(t, handle.Transmitted, 1, "capture failures must not block transmission")
	assert.Zero(t, pw.Captured())
	require.Len(t, rec.Logs(), 1)
	assert.Contains(t, rec.Logs()[0], "disk full")
}
