package sixlowpan

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jnet-io/jnet"
)

// udpDispatch is the 5-bit prefix identifying a 6LoWPAN NHC-compressed UDP
// datagram (RFC 6282 §4.3): 0b11110 in the top 5 bits, followed by the C
// (checksum elided, bit 2) and PP (port compression, bits 0-1) fields.
const udpDispatch = 0b1111_0000

var (
	errShortUDP       = errors.New("sixlowpan/nhc: short buffer")
	errBadUDPDispatch = errors.New("sixlowpan/nhc: bad UDP NHC dispatch bits")
)

// portCompression identifies which of the four RFC 6282 §4.3.3 port
// compression forms a compressed UDP datagram uses.
type portCompression uint8

const (
	portNone   portCompression = 0b00 // both ports carried in full, 2+2 bytes.
	portDestShort portCompression = 0b01 // source port in full, dest port is 0xf0XX, 2+1 bytes.
	portSrcShort  portCompression = 0b10 // source port is 0xf0XX, dest port in full, 1+2 bytes.
	portBothShort portCompression = 0b11 // both ports are 0xf0BX, 1 byte nibbles.
)

// shortPortBase is the base of the compressible port range used by the
// portSrcShort/portDestShort/portBothShort forms (0xf0b0-0xf0bf for both,
// 0xf000-0xf0ff for one side).
const shortPortBase = 0xf000

// UdpPacket is a view over an NHC-compressed UDP datagram: a 1-byte
// dispatch/compression header, the compressed ports, an optional 2-byte
// checksum, then payload.
type UdpPacket struct {
	buf []byte
	len int
}

func (u UdpPacket) dispatch() uint8 { return u.buf[0] }

func (u UdpPacket) checksumElided() bool { return u.dispatch()&0b100 != 0 }

func (u UdpPacket) portComp() portCompression { return portCompression(u.dispatch() & 0b11) }

// ParseUDP validates buf as an NHC-compressed UDP datagram and returns a
// view over it.
func ParseUDP(buf []byte) (UdpPacket, error) {
	if len(buf) < 1 {
		return UdpPacket{}, errShortUDP
	}
	u := UdpPacket{buf: buf}
	if u.dispatch()&0b1111_1000 != udpDispatch {
		return UdpPacket{}, errBadUDPDispatch
	}
	n := 1
	switch u.portComp() {
	case portNone:
		n += 4
	case portDestShort, portSrcShort:
		n += 3
	case portBothShort:
		n += 1
	}
	if !u.checksumElided() {
		n += 2
	}
	if n > len(buf) {
		return UdpPacket{}, errShortUDP
	}
	u.len = n
	return u, nil
}

// Len returns the size in bytes of the NHC UDP header (dispatch + ports +
// optional checksum).
func (u UdpPacket) Len() int { return u.len }

// Payload returns the bytes following the NHC UDP header.
func (u UdpPacket) Payload() []byte { return u.buf[u.len:] }

// Ports decompresses the source and destination port fields.
func (u UdpPacket) Ports() (src, dest uint16) {
	off := 1
	switch u.portComp() {
	case portNone:
		src = binary.BigEndian.Uint16(u.buf[off:])
		dest = binary.BigEndian.Uint16(u.buf[off+2:])
	case portDestShort:
		src = binary.BigEndian.Uint16(u.buf[off:])
		dest = shortPortBase + uint16(u.buf[off+2])
	case portSrcShort:
		src = shortPortBase + uint16(u.buf[off])
		dest = binary.BigEndian.Uint16(u.buf[off+1:])
	case portBothShort:
		b := u.buf[off]
		src = 0xf0b0 + uint16(b>>4)
		dest = 0xf0b0 + uint16(b&0xf)
	}
	return src, dest
}

// Checksum returns the carried checksum and true, or reports ok=false if the
// checksum was elided (in which case the caller must recompute it from the
// IPv6 pseudo-header, since elision is only valid when the link layer
// guarantees integrity).
func (u UdpPacket) Checksum() (crc uint16, ok bool) {
	if u.checksumElided() {
		return 0, false
	}
	off := u.len - 2
	return binary.BigEndian.Uint16(u.buf[off:off+2]), true
}

// portFitsBoth reports whether a port can be represented in the 4-bit
// compressed nibble used by portBothShort (0xf0b0-0xf0bf).
func portFitsBoth(port uint16) bool { return port >= 0xf0b0 && port <= 0xf0bf }

// portFitsShort reports whether a port can be represented in the 8-bit
// compressed byte used by portSrcShort/portDestShort (0xf000-0xf0ff).
func portFitsShort(port uint16) bool { return port >= 0xf000 && port <= 0xf0ff }

// NewUDP builds an NHC-compressed UDP datagram in buf, choosing the
// shortest port encoding src and dest allow. elideChecksum must only be set
// true when the underlying link guarantees payload integrity on its own
// (RFC 6282 §4.3.3); [UdpPacket] leaves this decision to the caller since
// it depends on radio/driver guarantees outside this package's scope.
func NewUDP(buf []byte, src, dest, crc uint16, elideChecksum bool) (UdpPacket, error) {
	comp := portNone
	switch {
	case portFitsBoth(src) && portFitsBoth(dest):
		comp = portBothShort
	case portFitsShort(src):
		comp = portSrcShort
	case portFitsShort(dest):
		comp = portDestShort
	}

	n := 1
	switch comp {
	case portNone:
		n += 4
	case portDestShort, portSrcShort:
		n += 3
	case portBothShort:
		n += 1
	}
	if !elideChecksum {
		n += 2
	}
	if len(buf) < n {
		return UdpPacket{}, errShortUDP
	}
	buf = buf[:n]

	buf[0] = udpDispatch | uint8(comp)
	if elideChecksum {
		buf[0] |= 0b100
	}
	off := 1
	switch comp {
	case portNone:
		binary.BigEndian.PutUint16(buf[off:], src)
		binary.BigEndian.PutUint16(buf[off+2:], dest)
	case portDestShort:
		binary.BigEndian.PutUint16(buf[off:], src)
		buf[off+2] = byte(dest - shortPortBase)
	case portSrcShort:
		buf[off] = byte(src - shortPortBase)
		binary.BigEndian.PutUint16(buf[off+1:], dest)
	case portBothShort:
		buf[off] = byte(src-0xf0b0)<<4 | byte(dest-0xf0b0)
	}

	if !elideChecksum {
		binary.BigEndian.PutUint16(buf[n-2:n], crc)
	}

	return UdpPacket{buf: buf, len: n}, nil
}

// Checksum computes the UDP checksum over the IPv6 pseudo-header (crc comes
// seeded with the source and destination addresses; the Next Header and
// upper-layer length are added here), the reconstructed 8-byte UDP header (ports plus a length field
// derived from payloadLen), and the payload. Per RFC 6282 §4.3.3.1 the
// checksum is always computed over the decompressed form, never the
// compressed wire bytes.
func Checksum(crc jnet.CRC791, src, dest uint16, payload []byte) uint16 {
	length := uint16(8 + len(payload))
	crc.AddUint32(uint32(jnet.IPProtoUDP))
	crc.AddUint16(src)
	crc.AddUint16(dest)
	crc.AddUint16(length)
	crc.AddUint16(length) // UDP header's own length field, redundant with the pseudo-header tally.
	sum := jnet.NeverZeroChecksum(crc.PayloadSum16(payload))
	return sum
}

func (u UdpPacket) String() string {
	src, dest := u.Ports()
	_, hasCRC := u.Checksum()
	return fmt.Sprintf("NHC-UDP %d->%d crc_elided=%v", src, dest, !hasCRC)
}
