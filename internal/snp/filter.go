package snp

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// applyReceiveFilters updates the filter setting and multicast list the way
// firmware does, rejecting bits outside ReceiveFilterMask.
func (m *Mode) applyReceiveFilters(enable, disable ReceiveFlags, reset bool, list []MACAddress) error {
	if (enable|disable)&^m.ReceiveFilterMask != 0 {
		return newError("receive filters", StatusInvalidParameter)
	}
	if !reset && len(list) > m.MaxMCastFilterCount {
		return newError("receive filters", StatusInvalidParameter)
	}

	m.ReceiveFilterSetting = (m.ReceiveFilterSetting | enable) &^ disable
	switch {
	case reset:
		m.MCastFilter = nil
	case len(list) > 0:
		m.MCastFilter = append([]MACAddress(nil), list...)
	}
	return nil
}

// Accepts reports whether a frame addressed to dst passes the current
// receive filters. An empty multicast list with ReceiveMulticast set
// admits every multicast group.
func (m *Mode) Accepts(dst []byte) bool {
	if len(dst) < 6 {
		return false
	}
	dst = dst[:6]
	set := m.ReceiveFilterSetting
	if set&ReceivePromiscuous != 0 {
		return true
	}
	if bytes.Equal(dst, m.BroadcastAddress[:6]) {
		return set&ReceiveBroadcast != 0
	}
	if dst[0]&0x01 != 0 {
		if set&ReceivePromiscuousMulticast != 0 {
			return true
		}
		if set&ReceiveMulticast == 0 {
			return false
		}
		if len(m.MCastFilter) == 0 {
			return true
		}
		for _, group := range m.MCastFilter {
			if bytes.Equal(dst, group[:6]) {
				return true
			}
		}
		return false
	}
	return set&ReceiveUnicast != 0 && bytes.Equal(dst, m.CurrentAddress[:6])
}

// BPFExpression renders the filter setting as a pcap filter expression.
// It returns "" when no kernel filter should be installed, either because
// the interface is promiscuous or because nothing is enabled (in which case
// the software check in Accepts drops everything).
func (m *Mode) BPFExpression() string {
	set := m.ReceiveFilterSetting
	if set&ReceivePromiscuous != 0 || set&ReceiveAll == 0 {
		return ""
	}
	var terms []string
	if set&ReceiveUnicast != 0 {
		terms = append(terms, "ether dst "+m.CurrentAddress.String())
	}
	if set&ReceiveBroadcast != 0 {
		terms = append(terms, "ether broadcast")
	}
	switch {
	case set&ReceivePromiscuousMulticast != 0:
		terms = append(terms, "ether multicast")
	case set&ReceiveMulticast != 0 && len(m.MCastFilter) == 0:
		terms = append(terms, "ether multicast")
	case set&ReceiveMulticast != 0:
		for _, group := range m.MCastFilter {
			terms = append(terms, "ether dst "+group.String())
		}
	}
	return strings.Join(terms, " or ")
}

// maxFilteredPerReceive bounds how many rejected frames a single Receive
// reads past before reporting an empty queue.
const maxFilteredPerReceive = 16

// nextAccepted reads frames until one passes the receive filters. read
// errors are returned as is. After maxFilteredPerReceive rejected frames it
// reports StatusNotReady so a poll never spins on a busy link.
func (m *Mode) nextAccepted(read func() ([]byte, error)) ([]byte, error) {
	for i := 0; i < maxFilteredPerReceive; i++ {
		data, err := read()
		if err != nil {
			return nil, err
		}
		if m.Accepts(data) {
			return data, nil
		}
	}
	return nil, newError("receive", StatusNotReady)
}

// parseMediaHeader fills hdr from the Ethernet header at the start of frame.
func parseMediaHeader(frame []byte, hdr *FrameHeader) {
	if hdr == nil {
		return
	}
	*hdr = FrameHeader{}
	if len(frame) < MediaHeaderSize {
		return
	}
	hdr.HeaderSize = MediaHeaderSize
	copy(hdr.Dst[:6], frame[0:6])
	copy(hdr.Src[:6], frame[6:12])
	hdr.Protocol = binary.BigEndian.Uint16(frame[12:14])
}

// fillMediaHeader writes hdr into the first MediaHeaderSize bytes of buf.
func fillMediaHeader(buf []byte, hdr *TxHeader, mode *Mode) error {
	if hdr == nil {
		return nil
	}
	if len(buf) < MediaHeaderSize {
		return &Error{Op: "transmit", Status: StatusBufferTooSmall, Size: MediaHeaderSize}
	}
	src := mode.CurrentAddress
	if hdr.Src != nil {
		src = *hdr.Src
	}
	copy(buf[0:6], hdr.Dst[:6])
	copy(buf[6:12], src[:6])
	binary.BigEndian.PutUint16(buf[12:14], hdr.Protocol)
	return nil
}

// checkTransmit validates a transmit buffer against the mode.
func checkTransmit(buf []byte, mode *Mode) error {
	if mode.State != StateInitialized {
		return newError("transmit", StatusNotStarted)
	}
	if len(buf) > mode.MaxPacketSize+mode.MediaHeaderSize {
		return newError("transmit", StatusInvalidParameter)
	}
	return nil
}
