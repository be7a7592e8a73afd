package phy

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/snpnet/internal/monitoring"
)

// PcapMode selects which directions a PcapWriter captures.
type PcapMode int

const (
	PcapBoth PcapMode = iota
	PcapRxOnly
	PcapTxOnly
)

// ParsePcapMode accepts "both", "rx" or "tx".
func ParsePcapMode(s string) (PcapMode, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return PcapBoth, nil
	case "rx":
		return PcapRxOnly, nil
	case "tx":
		return PcapTxOnly, nil
	}
	return 0, fmt.Errorf("unknown capture mode %q (want both, rx or tx)", s)
}

func (m PcapMode) captures(dir Direction) bool {
	switch m {
	case PcapRxOnly:
		return dir == DirectionRx
	case PcapTxOnly:
		return dir == DirectionTx
	}
	return true
}

// pcapSnapLen covers any frame a device can hand over, including paired
// transmit tokens that are not bounded by the MTU.
const pcapSnapLen = 65535

// PcapWriter wraps a Device and records the frames crossing its tokens into
// a pcap stream, stamped with the poll timestamp. Write failures are logged
// and never reach the stack.
type PcapWriter struct {
	lower  Device
	writer *pcapgo.Writer
	mode   PcapMode
	count  int
}

// NewPcapWriter writes the pcap file header to w and wraps lower.
func NewPcapWriter(lower Device, w io.Writer, mode PcapMode) (*PcapWriter, error) {
	caps := lower.Capabilities()
	linkType := layers.LinkTypeEthernet
	if caps.Medium == MediumIP {
		linkType = layers.LinkTypeRaw
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(pcapSnapLen, linkType); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &PcapWriter{lower: lower, writer: pw, mode: mode}, nil
}

// Receive forwards to the wrapped device.
func (p *PcapWriter) Receive(ts time.Time) (RxToken, TxToken, bool) {
	rx, tx, ok := p.lower.Receive(ts)
	if !ok {
		return nil, nil, false
	}
	return &tracerRxToken{lower: rx, ts: ts, trace: p.record}, &tracerTxToken{lower: tx, ts: ts, trace: p.record}, true
}

// Transmit forwards to the wrapped device.
func (p *PcapWriter) Transmit(ts time.Time) (TxToken, bool) {
	tx, ok := p.lower.Transmit(ts)
	if !ok {
		return nil, false
	}
	return &tracerTxToken{lower: tx, ts: ts, trace: p.record}, true
}

// Capabilities reports the wrapped device's capabilities.
func (p *PcapWriter) Capabilities() DeviceCapabilities {
	return p.lower.Capabilities()
}

// Captured returns the number of frames written so far.
func (p *PcapWriter) Captured() int {
	return p.count
}

func (p *PcapWriter) record(ts time.Time, dir Direction, frame []byte) {
	if !p.mode.captures(dir) {
		return
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := p.writer.WritePacket(ci, frame); err != nil {
		monitoring.Logf("pcap writer: failed to record %s frame: %v", dir, err)
		return
	}
	p.count++
}
