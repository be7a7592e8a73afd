// Package phy is the contract between a packet-oriented protocol stack and
// the devices it polls.
//
// A stack asks a Device for a receive opportunity and a transmit opportunity
// on every poll. Each opportunity is a single-use token: an RxToken lends the
// received frame for the duration of one callback, a TxToken lends a buffer
// to fill and sends it when the callback returns. Tokens panic when consumed
// twice.
package phy

import (
	"fmt"
	"time"
)

// Medium is the framing a device delivers.
type Medium int

const (
	// MediumEthernet frames start with an Ethernet II header.
	MediumEthernet Medium = iota
	// MediumIP frames are bare IP packets.
	MediumIP
)

func (m Medium) String() string {
	switch m {
	case MediumEthernet:
		return "ethernet"
	case MediumIP:
		return "ip"
	}
	return fmt.Sprintf("Medium(%d)", int(m))
}

// DeviceCapabilities describes what a device can carry.
type DeviceCapabilities struct {
	Medium Medium
	// MaxTransmissionUnit is the largest frame, including the link-layer
	// header, the device will send or deliver.
	MaxTransmissionUnit int
	// MaxBurstSize is the number of frames the device accepts in one burst,
	// or 0 when it does not say.
	MaxBurstSize int
}

// RxToken grants read access to one received frame.
type RxToken interface {
	// Consume calls f with the frame and returns f's result. buf is only
	// valid during the call.
	Consume(f func(buf []byte) error) error
}

// TxToken grants one transmission.
type TxToken interface {
	// Consume calls f with a zeroed buffer of exactly n bytes, sends the
	// buffer after f returns and returns f's result. n larger than the
	// device's buffer capacity panics.
	Consume(n int, f func(buf []byte) error) error
}

// Device is polled by a protocol stack. Implementations never block.
type Device interface {
	// Receive returns a token pair when a frame is waiting. The TxToken lets
	// the stack answer immediately.
	Receive(ts time.Time) (RxToken, TxToken, bool)

	// Transmit returns a token when the device can accept a frame.
	Transmit(ts time.Time) (TxToken, bool)

	// Capabilities reports the medium and size limits.
	Capabilities() DeviceCapabilities
}

// ConsumeRx consumes tok with a function producing any result type.
func ConsumeRx[R any](tok RxToken, f func(buf []byte) R) R {
	var r R
	_ = tok.Consume(func(buf []byte) error {
		r = f(buf)
		return nil
	})
	return r
}

// ConsumeTx consumes tok with a function producing any result type.
func ConsumeTx[R any](tok TxToken, n int, f func(buf []byte) R) R {
	var r R
	_ = tok.Consume(n, func(buf []byte) error {
		r = f(buf)
		return nil
	})
	return r
}
