package poller

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/banshee-data/snpnet/internal/phy"
)

// ARPResponder answers ARP who-has requests for a single IPv4 address using
// the transmit token paired with the request. Everything else is ignored.
type ARPResponder struct {
	addr phy.EthernetAddress
	ip   net.IP

	eth     layers.Ethernet
	arp     layers.ARP
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
	out     gopacket.SerializeBuffer

	replies int
}

// NewARPResponder answers for ip with hardware address addr.
func NewARPResponder(addr phy.EthernetAddress, ip net.IP) (*ARPResponder, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("arp responder needs an IPv4 address, got %v", ip)
	}
	r := &ARPResponder{addr: addr, ip: ip4, out: gopacket.NewSerializeBuffer()}
	r.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &r.eth, &r.arp)
	r.parser.IgnoreUnsupported = true
	return r, nil
}

// Replies returns how many replies have been sent.
func (r *ARPResponder) Replies() int {
	return r.replies
}

// HandleFrame implements Handler.
func (r *ARPResponder) HandleFrame(_ time.Time, frame []byte, reply phy.TxToken) error {
	if err := r.parser.DecodeLayers(frame, &r.decoded); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	if len(r.decoded) < 2 || r.decoded[1] != layers.LayerTypeARP {
		return nil
	}
	if r.arp.Operation != layers.ARPRequest || !bytes.Equal(r.arp.DstProtAddress, r.ip) {
		return nil
	}

	hw := r.addr.HardwareAddr()
	eth := &layers.Ethernet{
		SrcMAC:       hw,
		DstMAC:       net.HardwareAddr(r.arp.SourceHwAddress),
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   hw,
		SourceProtAddress: r.ip,
		DstHwAddress:      r.arp.SourceHwAddress,
		DstProtAddress:    r.arp.SourceProtAddress,
	}
	if err := gopacket.SerializeLayers(r.out, gopacket.SerializeOptions{}, eth, arp); err != nil {
		return fmt.Errorf("serialize arp reply: %w", err)
	}

	resp := r.out.Bytes()
	err := reply.Consume(len(resp), func(buf []byte) error {
		copy(buf, resp)
		return nil
	})
	if err == nil {
		r.replies++
	}
	return err
}
