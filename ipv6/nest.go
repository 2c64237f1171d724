package ipv6

import "github.com/jnet-io/jnet/ethernet"

// BuildInEthernet sets ef's EtherType to IPv6 and returns an IPv6 [Frame]
// view over ef's payload, so the caller can build the IPv6 packet directly
// in place inside the Ethernet frame's buffer without copying.
func BuildInEthernet(ef ethernet.Frame) (Frame, error) {
	ef.SetEtherType(ethernet.TypeIPv6)
	return NewFrame(ef.Payload())
}
