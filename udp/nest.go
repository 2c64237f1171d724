package udp

import (
	"github.com/jnet-io/jnet"
	"github.com/jnet-io/jnet/ipv4"
	"github.com/jnet-io/jnet/ipv6"
)

// BuildInIPv4 sets ifrm's Protocol to UDP, sets the IPv4 TotalLength to
// match, and returns a UDP [Frame] view over ifrm's payload with its Length
// field set to length.
func BuildInIPv4(ifrm ipv4.Frame, length uint16) (Frame, error) {
	ifrm.SetProtocol(jnet.IPProtoUDP)
	ifrm.SetTotalLength(uint16(ifrm.HeaderLength()) + length)
	ufrm, err := NewFrame(ifrm.Payload())
	if err == nil {
		ufrm.SetLength(length)
	}
	return ufrm, err
}

// BuildInIPv6 sets i6frm's NextHeader to UDP, sets the IPv6 PayloadLength to
// match, and returns a UDP [Frame] view over i6frm's payload with its Length
// field set to length.
func BuildInIPv6(i6frm ipv6.Frame, length uint16) (Frame, error) {
	i6frm.SetNextHeader(jnet.IPProtoUDP)
	i6frm.SetPayloadLength(length)
	ufrm, err := NewFrame(i6frm.Payload())
	if err == nil {
		ufrm.SetLength(length)
	}
	return ufrm, err
}

// UpdateIPv4Checksum computes and writes ufrm's checksum using ifrm's IPv4
// pseudo-header. A zero checksum is remapped to 0xffff, since zero means
// "no checksum computed" over IPv4.
func (ufrm Frame) UpdateIPv4Checksum(ifrm ipv4.Frame) uint16 {
	var crc jnet.CRC791
	ifrm.CRCWriteUDPPseudo(&crc)
	return ufrm.UpdateChecksumWithPseudo(crc)
}

// UpdateIPv6Checksum computes and writes ufrm's checksum using i6frm's IPv6
// pseudo-header. Over IPv6 the UDP checksum is mandatory and must never be
// zero or elided.
func (ufrm Frame) UpdateIPv6Checksum(i6frm ipv6.Frame) uint16 {
	var crc jnet.CRC791
	i6frm.CRCWritePseudo(&crc)
	return ufrm.UpdateChecksumWithPseudo(crc)
}

// BuildInIPv4Checksummed sets ifrm's Protocol to UDP, builds a UDP [Frame]
// view of length bytes over ifrm's payload, runs fn over it, updates the
// UDP checksum using ifrm's pseudo-header, and updates ifrm's own header
// checksum on the way out, returning the resulting [ipv4.ValidFrame]. This
// is the IPv4-side equivalent of the ethernet/ipv4 builder helpers, living
// in this package rather than ipv4's to avoid an import cycle.
func BuildInIPv4Checksummed(ifrm ipv4.Frame, length uint16, fn func(Frame) error) (ipv4.ValidFrame, error) {
	ufrm, err := BuildInIPv4(ifrm, length)
	if err != nil {
		return ipv4.ValidFrame{}, err
	}
	if err := fn(ufrm); err != nil {
		return ipv4.ValidFrame{}, err
	}
	ufrm.UpdateIPv4Checksum(ifrm)
	return ifrm.UpdateChecksum(), nil
}
