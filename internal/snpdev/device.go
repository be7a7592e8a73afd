// Package snpdev adapts a polled snp.SimpleNetwork handle to the token-based
// phy.Device contract.
//
// The handle must already be started and initialized; the adapter borrows it
// for its own lifetime and never changes its lifecycle state. Buffers are
// allocated once, at construction, with the capacity chosen by
// WithMaxPacket. Each Receive reuses the receive buffer, so a receive token
// must be consumed before the next poll.
//
//	handle, err := snp.OpenLive(snp.LiveConfig{Interface: "eth0"})
//	...
//	dev, err := snpdev.New(handle)
//	...
//	if rx, tx, ok := dev.Receive(time.Now()); ok { ... }
package snpdev

import (
	"fmt"
	"time"

	"github.com/banshee-data/snpnet/internal/monitoring"
	"github.com/banshee-data/snpnet/internal/phy"
	"github.com/banshee-data/snpnet/internal/snp"
)

// DefaultMaxPacket is the buffer capacity used when WithMaxPacket is not given.
const DefaultMaxPacket = 1500

// Option configures New.
type Option func(*options)

type options struct {
	maxPacket int
}

// WithMaxPacket sets the capacity of every buffer handed to the handle. If
// it is smaller than the handle's MaxPacketSize the advertised MTU shrinks
// to match. n must be positive.
func WithMaxPacket(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("snpdev: max packet must be positive, got %d", n))
	}
	return func(o *options) { o.maxPacket = n }
}

// Device is a phy.Device over a borrowed snp.SimpleNetwork. It is not safe
// for concurrent use.
type Device struct {
	snp       snp.SimpleNetwork
	maxPacket int

	rxBuf []byte
	txBuf []byte

	// rxGen counts receive attempts; a receive token is only valid for the
	// attempt that produced it.
	rxGen   uint64
	txInUse bool
}

var _ phy.Device = (*Device)(nil)

// New sets the receive filters on handle to unicast, multicast and broadcast,
// with promiscuous reception disabled, and returns the adapter. A filter
// failure is returned as is and no Device is created.
func New(handle snp.SimpleNetwork, opts ...Option) (*Device, error) {
	o := options{maxPacket: DefaultMaxPacket}
	for _, opt := range opts {
		opt(&o)
	}

	enable := snp.ReceiveUnicast | snp.ReceiveMulticast | snp.ReceiveBroadcast
	disable := snp.ReceivePromiscuous & handle.Mode().ReceiveFilterMask
	if err := handle.ReceiveFilters(enable, disable, false, nil); err != nil {
		return nil, err
	}

	return &Device{
		snp:       handle,
		maxPacket: o.maxPacket,
		rxBuf:     make([]byte, o.maxPacket),
		txBuf:     make([]byte, o.maxPacket),
	}, nil
}

// CurrentAddress returns the address currently configured on the handle.
func (d *Device) CurrentAddress() phy.EthernetAddress {
	return EthernetAddressFromMAC(d.snp.Mode().CurrentAddress)
}

// PermanentAddress returns the handle's burned-in address.
func (d *Device) PermanentAddress() phy.EthernetAddress {
	return EthernetAddressFromMAC(d.snp.Mode().PermanentAddress)
}

// Handle returns the borrowed handle.
func (d *Device) Handle() snp.SimpleNetwork {
	return d.snp
}

// MaxPacket returns the fixed buffer capacity.
func (d *Device) MaxPacket() int {
	return d.maxPacket
}

// Receive polls the handle once. Only a delivered frame yields tokens; an
// empty queue and device errors both yield nothing, the latter logged.
func (d *Device) Receive(_ time.Time) (phy.RxToken, phy.TxToken, bool) {
	d.rxGen++
	n, err := d.snp.Receive(d.rxBuf, nil)

	switch outcome := classifyReceive(n, err, d.maxPacket); outcome {
	case rxDelivered:
		return &rxToken{dev: d, n: n, gen: d.rxGen}, &txToken{dev: d}, true
	case rxNotReady:
		monitoring.Debugf("rx: %s", outcome)
	default:
		if err == nil {
			err = fmt.Errorf("handle reported %d bytes into a %d byte buffer", n, d.maxPacket)
		}
		monitoring.Logf("error during rx: %v", err)
	}
	return nil, nil, false
}

// Transmit always offers a token; the handle has no backpressure signal.
func (d *Device) Transmit(_ time.Time) (phy.TxToken, bool) {
	return &txToken{dev: d}, true
}

// Capabilities reports Ethernet framing and an MTU no larger than either
// the handle's MaxPacketSize or the adapter's buffer capacity.
func (d *Device) Capabilities() phy.DeviceCapabilities {
	return phy.DeviceCapabilities{
		Medium:              phy.MediumEthernet,
		MaxTransmissionUnit: min(d.snp.Mode().MaxPacketSize, d.maxPacket),
	}
}

type rxOutcome int

const (
	rxDelivered rxOutcome = iota
	rxNotReady
	rxTransientError
)

func (o rxOutcome) String() string {
	switch o {
	case rxDelivered:
		return "delivered"
	case rxNotReady:
		return "not ready"
	}
	return "transient error"
}

func classifyReceive(n int, err error, capacity int) rxOutcome {
	switch {
	case err == nil && n >= 0 && n <= capacity:
		return rxDelivered
	case err != nil && snp.StatusOf(err) == snp.StatusNotReady:
		return rxNotReady
	}
	return rxTransientError
}
