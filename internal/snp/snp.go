// Package snp describes the firmware-level network handle the device adapter
// sits on: a polled, synchronous interface in the shape of the UEFI Simple
// Network Protocol. The handle owns no buffers; every call fills or reads a
// caller-supplied slice.
//
// Besides the contract itself the package provides a scripted
// MockSimpleNetwork for tests, a pcap-file backed FileNetwork for offline
// replay and a libpcap backed LiveNetwork (build tag "pcap").
package snp

import (
	"fmt"
	"net"
	"time"
)

// MediaHeaderSize is the size of an Ethernet II header.
const MediaHeaderSize = 14

// DefaultMaxPacketSize is the MaxPacketSize advertised by simulated handles
// when none is configured. It excludes the media header.
const DefaultMaxPacketSize = 1500

// SimpleNetwork is an already started and initialized network interface.
// Implementations are not safe for concurrent use.
type SimpleNetwork interface {
	// Mode returns a snapshot of the interface state.
	Mode() Mode

	// ReceiveFilters enables and disables receive filter bits. When
	// resetMCastFilter is true the multicast list is cleared, otherwise a
	// non-empty mcastFilter replaces it.
	ReceiveFilters(enable, disable ReceiveFlags, resetMCastFilter bool, mcastFilter []MACAddress) error

	// Receive copies one queued frame into buf and returns its length. It
	// never blocks: with nothing queued it returns an error wrapping
	// StatusNotReady. hdr may be nil.
	Receive(buf []byte, hdr *FrameHeader) (int, error)

	// Transmit queues buf for transmission. When hdr is non-nil the first
	// MediaHeaderSize bytes of buf are filled from it, otherwise buf must
	// already carry the media header.
	Transmit(buf []byte, hdr *TxHeader) error
}

// Handle is a SimpleNetwork whose resources the opener must release.
type Handle interface {
	SimpleNetwork
	Close() error
}

// State is the lifecycle state of the interface.
type State uint32

const (
	StateStopped State = iota
	StateStarted
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StateInitialized:
		return "initialized"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// ReceiveFlags selects which frames the interface hands to Receive.
type ReceiveFlags uint32

const (
	ReceiveUnicast ReceiveFlags = 1 << iota
	ReceiveMulticast
	ReceiveBroadcast
	ReceivePromiscuous
	ReceivePromiscuousMulticast
)

// ReceiveAll is every filter bit a simulated handle supports.
const ReceiveAll = ReceiveUnicast | ReceiveMulticast | ReceiveBroadcast | ReceivePromiscuous | ReceivePromiscuousMulticast

func (f ReceiveFlags) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  ReceiveFlags
		name string
	}{
		{ReceiveUnicast, "unicast"},
		{ReceiveMulticast, "multicast"},
		{ReceiveBroadcast, "broadcast"},
		{ReceivePromiscuous, "promiscuous"},
		{ReceivePromiscuousMulticast, "promiscuous-multicast"},
	}
	s := ""
	for _, n := range names {
		if f&n.bit == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	if rest := f &^ ReceiveAll; rest != 0 {
		if s != "" {
			s += "|"
		}
		s += fmt.Sprintf("0x%x", uint32(rest))
	}
	return s
}

// MACAddress is the firmware's 32-byte hardware address. Only the first
// HwAddressSize bytes are significant; the remainder is padding.
type MACAddress [32]byte

// MACFromHardwareAddr pads a net.HardwareAddr into a MACAddress.
func MACFromHardwareAddr(hw net.HardwareAddr) MACAddress {
	var m MACAddress
	copy(m[:], hw)
	return m
}

// HardwareAddr returns the first size bytes as a net.HardwareAddr.
func (m MACAddress) HardwareAddr(size int) net.HardwareAddr {
	if size <= 0 || size > len(m) {
		size = 6
	}
	hw := make(net.HardwareAddr, size)
	copy(hw, m[:size])
	return hw
}

// String formats the Ethernet-sized prefix.
func (m MACAddress) String() string {
	return m.HardwareAddr(6).String()
}

// Mode mirrors the interface's mode data.
type Mode struct {
	State                State
	HwAddressSize        int
	MediaHeaderSize      int
	MaxPacketSize        int
	ReceiveFilterMask    ReceiveFlags
	ReceiveFilterSetting ReceiveFlags
	MaxMCastFilterCount  int
	MCastFilter          []MACAddress
	CurrentAddress       MACAddress
	BroadcastAddress     MACAddress
	PermanentAddress     MACAddress
	IfType               uint8
	MacAddressChangeable bool
	MultipleTxSupported  bool
	MediaPresent         bool
}

// NewEthernetMode returns the mode of an initialized Ethernet interface
// with the given address and every filter bit available but none set.
func NewEthernetMode(addr net.HardwareAddr, maxPacketSize int) Mode {
	if maxPacketSize <= 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	mac := MACFromHardwareAddr(addr)
	return Mode{
		State:               StateInitialized,
		HwAddressSize:       6,
		MediaHeaderSize:     MediaHeaderSize,
		MaxPacketSize:       maxPacketSize,
		ReceiveFilterMask:   ReceiveAll,
		MaxMCastFilterCount: 16,
		CurrentAddress:      mac,
		PermanentAddress:    mac,
		BroadcastAddress:    MACFromHardwareAddr(net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}),
		IfType:              1, // Ethernet (RFC 1700)
		MediaPresent:        true,
	}
}

// clone copies the mode so callers cannot alias the multicast list.
func (m Mode) clone() Mode {
	if m.MCastFilter != nil {
		m.MCastFilter = append([]MACAddress(nil), m.MCastFilter...)
	}
	return m
}

// FrameHeader receives the decoded media header of a frame. All fields are
// zero when the frame is shorter than the media header.
type FrameHeader struct {
	HeaderSize int
	Src        MACAddress
	Dst        MACAddress
	Protocol   uint16
}

// TxHeader asks Transmit to write the media header. A nil Src means the
// interface's current address.
type TxHeader struct {
	Src      *MACAddress
	Dst      MACAddress
	Protocol uint16
}

// LiveConfig configures OpenLive.
type LiveConfig struct {
	Interface   string
	SnapLen     int
	ReadTimeout time.Duration
}
