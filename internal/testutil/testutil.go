// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Well-known addresses used across tests.
var (
	LocalMAC     = net.HardwareAddr{0x02, 0x00, 0x5e, 0x10, 0x00, 0x01}
	RemoteMAC    = net.HardwareAddr{0x02, 0x00, 0x5e, 0x10, 0x00, 0x02}
	BroadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	LocalIP      = net.IPv4(192, 168, 69, 1).To4()
	RemoteIP     = net.IPv4(192, 168, 69, 2).To4()
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Pattern returns n bytes counting up from seed, wrapping at 256.
func Pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

// EthernetFrame serializes an Ethernet II frame around payload. Frames
// shorter than 60 bytes are padded by gopacket.
func EthernetFrame(t testing.TB, dst, src net.HardwareAddr, etherType layers.EthernetType, payload []byte) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: etherType}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize ethernet frame: %v", err)
	}
	return buf.Bytes()
}

// ARPRequest builds a broadcast who-has frame for target from sender.
func ARPRequest(t testing.TB, senderMAC net.HardwareAddr, senderIP, targetIP net.IP) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{SrcMAC: senderMAC, DstMAC: BroadcastMAC, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   senderMAC,
		SourceProtAddress: senderIP.To4(),
		DstHwAddress:      make(net.HardwareAddr, 6),
		DstProtAddress:    targetIP.To4(),
	}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, arp); err != nil {
		t.Fatalf("serialize arp request: %v", err)
	}
	return buf.Bytes()
}

// PcapStream renders frames as an Ethernet pcap file, one second apart.
func PcapStream(t testing.TB, frames ...[]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("write pcap header: %v", err)
	}
	ts := time.Unix(1700000000, 0)
	for i, f := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Second),
			CaptureLength: len(f),
			Length:        len(f),
		}
		if err := w.WritePacket(ci, f); err != nil {
			t.Fatalf("write pcap packet %d: %v", i, err)
		}
	}
	return out.Bytes()
}

// ReadPcap returns every frame stored in a pcap stream.
func ReadPcap(t testing.TB, data []byte) [][]byte {
	t.Helper()
	r, err := pcapgo.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read pcap header: %v", err)
	}
	var frames [][]byte
	for {
		frame, _, err := r.ReadPacketData()
		if err != nil {
			break
		}
		frames = append(frames, frame)
	}
	return frames
}
