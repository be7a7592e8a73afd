package snp

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/snpnet/internal/timeutil"
)

// FileConfig configures a FileNetwork.
type FileConfig struct {
	// Source supplies received frames as an Ethernet pcap stream. Optional.
	Source io.Reader
	// Sink receives transmitted frames as an Ethernet pcap stream. Optional.
	Sink io.Writer
	// Address is the interface's current and permanent address.
	Address net.HardwareAddr
	// MaxPacketSize is advertised in Mode. Defaults to DefaultMaxPacketSize.
	MaxPacketSize int
	// Clock stamps transmitted frames. Defaults to timeutil.RealClock.
	Clock timeutil.Clock
}

// FileStats counts what a FileNetwork has seen.
type FileStats struct {
	Received    int
	Filtered    int
	Oversized   int
	Transmitted int
}

// FileNetwork is a SimpleNetwork backed by pcap streams. Received frames are
// read from Source and passed through the receive filters; transmitted
// frames are appended to Sink. An exhausted Source reports StatusNotReady
// forever, like an idle link.
type FileNetwork struct {
	mode   Mode
	reader *pcapgo.Reader
	writer *pcapgo.Writer
	clock  timeutil.Clock
	stats  FileStats
}

// NewFileNetwork opens the configured pcap streams. Source must carry
// Ethernet frames; Sink is written an Ethernet file header immediately.
func NewFileNetwork(cfg FileConfig) (*FileNetwork, error) {
	if len(cfg.Address) != 6 {
		return nil, fmt.Errorf("file network needs a 6-byte address, got %q", cfg.Address)
	}
	f := &FileNetwork{
		mode:  NewEthernetMode(cfg.Address, cfg.MaxPacketSize),
		clock: cfg.Clock,
	}
	if f.clock == nil {
		f.clock = timeutil.RealClock{}
	}

	if cfg.Source != nil {
		r, err := pcapgo.NewReader(cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap header: %w", err)
		}
		if r.LinkType() != layers.LinkTypeEthernet {
			return nil, fmt.Errorf("unsupported pcap link type %v, want %v", r.LinkType(), layers.LinkTypeEthernet)
		}
		f.reader = r
	}

	if cfg.Sink != nil {
		w := pcapgo.NewWriter(cfg.Sink)
		snapLen := uint32(f.mode.MaxPacketSize + f.mode.MediaHeaderSize)
		if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
			return nil, fmt.Errorf("failed to write pcap header: %w", err)
		}
		f.writer = w
	}
	return f, nil
}

// Mode returns a snapshot of the simulated interface state.
func (f *FileNetwork) Mode() Mode {
	return f.mode.clone()
}

// ReceiveFilters updates the software receive filters.
func (f *FileNetwork) ReceiveFilters(enable, disable ReceiveFlags, reset bool, mcastFilter []MACAddress) error {
	return f.mode.applyReceiveFilters(enable, disable, reset, mcastFilter)
}

// Receive returns the next frame from Source that passes the filters.
func (f *FileNetwork) Receive(buf []byte, hdr *FrameHeader) (int, error) {
	if f.reader == nil {
		return 0, newError("receive", StatusNotReady)
	}
	for {
		data, _, err := f.reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			f.reader = nil
			return 0, newError("receive", StatusNotReady)
		}
		if err != nil {
			return 0, &Error{Op: "receive", Status: StatusDeviceError, Err: err}
		}
		if !f.mode.Accepts(data) {
			f.stats.Filtered++
			continue
		}
		if len(data) > len(buf) {
			f.stats.Oversized++
			return 0, &Error{Op: "receive", Status: StatusBufferTooSmall, Size: len(data)}
		}
		f.stats.Received++
		parseMediaHeader(data, hdr)
		return copy(buf, data), nil
	}
}

// Transmit appends buf to Sink. Without a Sink the frame is discarded.
func (f *FileNetwork) Transmit(buf []byte, hdr *TxHeader) error {
	if err := checkTransmit(buf, &f.mode); err != nil {
		return err
	}
	if err := fillMediaHeader(buf, hdr, &f.mode); err != nil {
		return err
	}
	if f.writer != nil {
		ci := gopacket.CaptureInfo{
			Timestamp:     f.clock.Now(),
			CaptureLength: len(buf),
			Length:        len(buf),
		}
		if err := f.writer.WritePacket(ci, buf); err != nil {
			return &Error{Op: "transmit", Status: StatusDeviceError, Err: err}
		}
	}
	f.stats.Transmitted++
	return nil
}

// Stats returns the frame counters.
func (f *FileNetwork) Stats() FileStats {
	return f.stats
}

// Close releases nothing; the streams belong to the caller.
func (f *FileNetwork) Close() error { return nil }
