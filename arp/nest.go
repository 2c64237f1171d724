package arp

import "github.com/jnet-io/jnet/ethernet"

// BuildInEthernet sets ef's EtherType to ARP and returns an ARP [Frame] view
// over ef's payload, so the caller can fill in the ARP packet directly in
// place inside the Ethernet frame's buffer without copying.
func BuildInEthernet(ef ethernet.Frame) (Frame, error) {
	ef.SetEtherType(ethernet.TypeARP)
	return NewFrame(ef.Payload())
}
