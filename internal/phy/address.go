package phy

import (
	"fmt"
	"net"
)

// EthernetAddress is a 6-byte MAC address in the stack's own form.
type EthernetAddress [6]byte

// BroadcastAddress is ff:ff:ff:ff:ff:ff.
var BroadcastAddress = EthernetAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// EthernetAddressFromBytes copies a 6-byte slice.
func EthernetAddressFromBytes(b []byte) (EthernetAddress, error) {
	var a EthernetAddress
	if len(b) != len(a) {
		return a, fmt.Errorf("ethernet address must be 6 bytes, got %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseEthernetAddress parses a colon- or dash-separated MAC address.
func ParseEthernetAddress(s string) (EthernetAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return EthernetAddress{}, err
	}
	return EthernetAddressFromBytes(hw)
}

// HardwareAddr converts to net.HardwareAddr.
func (a EthernetAddress) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(a))
	copy(hw, a[:])
	return hw
}

func (a EthernetAddress) String() string {
	return net.HardwareAddr(a[:]).String()
}

// IsBroadcast reports whether a is the broadcast address.
func (a EthernetAddress) IsBroadcast() bool { return a == BroadcastAddress }

// IsMulticast reports whether the group bit is set.
func (a EthernetAddress) IsMulticast() bool { return a[0]&0x01 != 0 }

// IsUnicast reports whether a names a single station.
func (a EthernetAddress) IsUnicast() bool { return !a.IsMulticast() }

// IsLocal reports whether the locally administered bit is set.
func (a EthernetAddress) IsLocal() bool { return a[0]&0x02 != 0 }
