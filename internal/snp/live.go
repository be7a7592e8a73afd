//go:build pcap
// +build pcap

package snp

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/google/gopacket/pcap"
)

// LiveNetwork is a SimpleNetwork over a libpcap handle on a host interface.
// The read timeout turns an idle link into StatusNotReady, so Receive never
// waits longer than LiveConfig.ReadTimeout.
type LiveNetwork struct {
	handle *pcap.Handle
	mode   Mode
}

// OpenLive opens iface for capture and injection with promiscuous mode off.
// This function is only available when building with the 'pcap' build tag.
func OpenLive(cfg LiveConfig) (Handle, error) {
	iface, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interface %s: %w", cfg.Interface, err)
	}
	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("interface %s has no Ethernet address", cfg.Interface)
	}
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = 65535
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Millisecond
	}

	inactive, err := pcap.NewInactiveHandle(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap handle for %s: %w", cfg.Interface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(cfg.SnapLen); err != nil {
		return nil, fmt.Errorf("failed to set snap length: %w", err)
	}
	if err := inactive.SetPromisc(false); err != nil {
		return nil, fmt.Errorf("failed to disable promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("failed to set immediate mode: %w", err)
	}
	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("failed to activate pcap handle on %s: %w", cfg.Interface, err)
	}

	mode := NewEthernetMode(iface.HardwareAddr, iface.MTU)
	log.Printf("Live network on %s: mac=%s mtu=%d timeout=%v", cfg.Interface, iface.HardwareAddr, iface.MTU, cfg.ReadTimeout)
	return &LiveNetwork{handle: handle, mode: mode}, nil
}

// Mode returns a snapshot of the interface state.
func (l *LiveNetwork) Mode() Mode {
	return l.mode.clone()
}

// ReceiveFilters updates the filter setting and installs the matching BPF
// program. Frames are also checked in software on receive.
func (l *LiveNetwork) ReceiveFilters(enable, disable ReceiveFlags, reset bool, mcastFilter []MACAddress) error {
	next := l.mode.clone()
	if err := next.applyReceiveFilters(enable, disable, reset, mcastFilter); err != nil {
		return err
	}
	if expr := next.BPFExpression(); expr != "" {
		if err := l.handle.SetBPFFilter(expr); err != nil {
			return &Error{Op: "receive filters", Status: StatusDeviceError, Err: err}
		}
		log.Printf("Live network BPF filter set: %s", expr)
	}
	l.mode = next
	return nil
}

// Receive reads at most one frame, waiting no longer than the read timeout
// for each read.
func (l *LiveNetwork) Receive(buf []byte, hdr *FrameHeader) (int, error) {
	data, err := l.mode.nextAccepted(l.read)
	if err != nil {
		return 0, err
	}
	if len(data) > len(buf) {
		return 0, &Error{Op: "receive", Status: StatusBufferTooSmall, Size: len(data)}
	}
	parseMediaHeader(data, hdr)
	return copy(buf, data), nil
}

func (l *LiveNetwork) read() ([]byte, error) {
	data, _, err := l.handle.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) || errors.Is(err, io.EOF) {
		return nil, newError("receive", StatusNotReady)
	}
	if err != nil {
		return nil, &Error{Op: "receive", Status: StatusDeviceError, Err: err}
	}
	return data, nil
}

// Transmit injects buf on the interface.
func (l *LiveNetwork) Transmit(buf []byte, hdr *TxHeader) error {
	if err := checkTransmit(buf, &l.mode); err != nil {
		return err
	}
	if err := fillMediaHeader(buf, hdr, &l.mode); err != nil {
		return err
	}
	if err := l.handle.WritePacketData(buf); err != nil {
		return &Error{Op: "transmit", Status: StatusDeviceError, Err: err}
	}
	return nil
}

// Close releases the pcap handle.
func (l *LiveNetwork) Close() error {
	l.handle.Close()
	return nil
}
