//go:build !pcap
// +build !pcap

package snp

import "fmt"

// OpenLive is a stub implementation when PCAP support is disabled
// Build with -tags=pcap to enable live capture
func OpenLive(cfg LiveConfig) (Handle, error) {
	return nil, fmt.Errorf("live capture on %s not enabled: rebuild with -tags=pcap", cfg.Interface)
}
