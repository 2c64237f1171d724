package ipv4

import "github.com/jnet-io/jnet/ethernet"

// BuildInEthernet sets ef's EtherType to IPv4 and returns an IPv4 [Frame]
// view over ef's payload, so the caller can build the IPv4 packet directly
// in place inside the Ethernet frame's buffer without copying.
func BuildInEthernet(ef ethernet.Frame) (Frame, error) {
	ef.SetEtherType(ethernet.TypeIPv4)
	return NewFrame(ef.Payload())
}

// BuildIPv4 sets ef's EtherType to IPv4, runs fn over an IPv4 [Frame] view
// of ef's payload, and updates the inner IPv4 header checksum on the way
// out, returning the resulting [ValidFrame]. Unlike [BuildInEthernet], the
// checksum is guaranteed to match the header fn wrote.
func BuildIPv4(ef ethernet.Frame, fn func(Frame) error) (ValidFrame, error) {
	ifrm, err := BuildInEthernet(ef)
	if err != nil {
		return ValidFrame{}, err
	}
	if err := fn(ifrm); err != nil {
		return ValidFrame{}, err
	}
	return ifrm.UpdateChecksum(), nil
}
