package snpdev

import (
	"fmt"

	"github.com/banshee-data/snpnet/internal/monitoring"
)

type rxToken struct {
	dev      *Device
	n        int
	gen      uint64
	consumed bool
}

// Consume lends the received bytes to f. The slice aliases the adapter's
// receive buffer and must not be retained or modified.
func (r *rxToken) Consume(f func(buf []byte) error) error {
	if r.consumed {
		panic("snpdev: receive token consumed twice")
	}
	if r.gen != r.dev.rxGen {
		panic(fmt.Sprintf("snpdev: stale receive token from poll %d consumed after poll %d", r.gen, r.dev.rxGen))
	}
	r.consumed = true
	return f(r.dev.rxBuf[:r.n:r.n])
}

type txToken struct {
	dev      *Device
	consumed bool
}

// Consume zeroes n bytes of the transmit buffer, lets f fill them and hands
// them to the handle. The frame is submitted whatever f returns; a transmit
// failure is logged and f's result is returned regardless.
func (t *txToken) Consume(n int, f func(buf []byte) error) error {
	if t.consumed {
		panic("snpdev: transmit token consumed twice")
	}
	d := t.dev
	if n < 0 || n > d.maxPacket {
		panic(fmt.Sprintf("snpdev: transmit length %d outside buffer capacity %d", n, d.maxPacket))
	}
	if d.txInUse {
		panic("snpdev: transmit token consumed while another transmit is in progress")
	}
	t.consumed = true
	d.txInUse = true
	defer func() { d.txInUse = false }()

	buf := d.txBuf[:n:n]
	clear(buf)
	result := f(buf)

	if err := d.snp.Transmit(buf, nil); err != nil {
		monitoring.Logf("error during tx: %v", err)
	}
	return result
}
