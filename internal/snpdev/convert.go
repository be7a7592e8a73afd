package snpdev

import (
	"github.com/banshee-data/snpnet/internal/phy"
	"github.com/banshee-data/snpnet/internal/snp"
)

// EthernetAddressFromMAC keeps the first six bytes of a firmware address.
func EthernetAddressFromMAC(m snp.MACAddress) phy.EthernetAddress {
	var a phy.EthernetAddress
	copy(a[:], m[:len(a)])
	return a
}

// MACFromEthernetAddress pads a stack address to the firmware layout.
func MACFromEthernetAddress(a phy.EthernetAddress) snp.MACAddress {
	var m snp.MACAddress
	copy(m[:], a[:])
	return m
}
