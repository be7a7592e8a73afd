package phy

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/banshee-data/snpnet/internal/monitoring"
)

// Direction tells a trace or capture sink which way a frame travelled.
type Direction int

const (
	DirectionRx Direction = iota
	DirectionTx
)

func (d Direction) String() string {
	if d == DirectionTx {
		return "tx"
	}
	return "rx"
}

// TraceFunc observes a frame crossing a Tracer.
type TraceFunc func(ts time.Time, dir Direction, frame []byte)

// Tracer wraps a Device and reports every frame that passes through its
// tokens. Received frames are reported before the stack sees them,
// transmitted frames after the stack has filled them.
type Tracer struct {
	lower Device
	trace TraceFunc
}

// NewTracer wraps lower. A nil trace logs a decoded summary of each frame
// through monitoring.Logf.
func NewTracer(lower Device, trace TraceFunc) *Tracer {
	if trace == nil {
		medium := lower.Capabilities().Medium
		trace = func(ts time.Time, dir Direction, frame []byte) {
			monitoring.Logf("%s %s %s", ts.Format("15:04:05.000000"), dir, Describe(frame, medium))
		}
	}
	return &Tracer{lower: lower, trace: trace}
}

// Receive forwards to the wrapped device.
func (t *Tracer) Receive(ts time.Time) (RxToken, TxToken, bool) {
	rx, tx, ok := t.lower.Receive(ts)
	if !ok {
		return nil, nil, false
	}
	return &tracerRxToken{lower: rx, ts: ts, trace: t.trace}, &tracerTxToken{lower: tx, ts: ts, trace: t.trace}, true
}

// Transmit forwards to the wrapped device.
func (t *Tracer) Transmit(ts time.Time) (TxToken, bool) {
	tx, ok := t.lower.Transmit(ts)
	if !ok {
		return nil, false
	}
	return &tracerTxToken{lower: tx, ts: ts, trace: t.trace}, true
}

// Capabilities reports the wrapped device's capabilities.
func (t *Tracer) Capabilities() DeviceCapabilities {
	return t.lower.Capabilities()
}

type tracerRxToken struct {
	lower RxToken
	ts    time.Time
	trace TraceFunc
}

func (r *tracerRxToken) Consume(f func(buf []byte) error) error {
	return r.lower.Consume(func(buf []byte) error {
		r.trace(r.ts, DirectionRx, buf)
		return f(buf)
	})
}

type tracerTxToken struct {
	lower TxToken
	ts    time.Time
	trace TraceFunc
}

func (x *tracerTxToken) Consume(n int, f func(buf []byte) error) error {
	return x.lower.Consume(n, func(buf []byte) error {
		err := f(buf)
		x.trace(x.ts, DirectionTx, buf)
		return err
	})
}

// Describe decodes frame and renders a one-line summary such as
// "Ethernet/IPv4/UDP 192.168.69.2->192.168.69.1 len=60".
func Describe(frame []byte, medium Medium) string {
	first := layers.LayerTypeEthernet
	if medium == MediumIP {
		first = layers.LayerTypeIPv4
		if len(frame) > 0 && frame[0]>>4 == 6 {
			first = layers.LayerTypeIPv6
		}
	}
	pkt := gopacket.NewPacket(frame, first, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	var names []string
	for _, l := range pkt.Layers() {
		switch l.LayerType() {
		case gopacket.LayerTypePayload, gopacket.LayerTypeDecodeFailure:
			continue
		}
		names = append(names, l.LayerType().String())
	}
	if len(names) == 0 {
		names = append(names, "Unknown")
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(names, "/"))
	if arp, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP); ok {
		op := "reply"
		if arp.Operation == layers.ARPRequest {
			op = "request"
		}
		sb.WriteString(" " + op)
	}
	if nl := pkt.NetworkLayer(); nl != nil {
		src, dst := nl.NetworkFlow().Endpoints()
		sb.WriteString(" " + src.String() + "->" + dst.String())
	} else if ll := pkt.LinkLayer(); ll != nil {
		src, dst := ll.LinkFlow().Endpoints()
		sb.WriteString(" " + src.String() + "->" + dst.String())
	}
	if el := pkt.ErrorLayer(); el != nil {
		sb.WriteString(" (" + el.Error().Error() + ")")
	}
	sb.WriteString(" len=")
	sb.WriteString(strconv.Itoa(len(frame)))
	return sb.String()
}
