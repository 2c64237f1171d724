// Package sixlowpan implements 6LoWPAN header compression for IPv6 over
// IEEE 802.15.4 (RFC 6282): the IPHC encoding for the IPv6 header itself
// (this file) and the NHC encoding for UDP (nhc.go).
package sixlowpan

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jnet-io/jnet"
)

// dispatch is the 3-bit value identifying an IPHC-compressed header, carried
// in the top 3 bits of the first byte.
const dispatch = 0b011

var (
	errShort        = errors.New("sixlowpan/iphc: short buffer")
	errBadDispatch  = errors.New("sixlowpan/iphc: bad dispatch bits")
	errContextUnsup = errors.New("sixlowpan/iphc: context extension (CID) not supported")
	errStatefulDest = errors.New("sixlowpan/iphc: stateful destination compression (DAC=1) not supported")
	errStatefulSrc  = errors.New("sixlowpan/iphc: stateful source compression with SAM!=0 not supported")
)

// Context carries the link-layer address used to derive an elided IPv6
// address, one per direction. A nil/zero Context means the corresponding
// address cannot be elided down to zero bytes and must be carried with at
// least the 64-bit Interface ID.
type Context struct {
	Source      *ElidableAddr
	Destination *ElidableAddr
}

// ElidableAddr names the link-layer address an elided IPv6 address can be
// reconstructed from: either a 16-bit IEEE 802.15.4 short address or a
// 64-bit extended/EUI-64 address.
type ElidableAddr struct {
	Short     jnet.ShortAddr
	Extended  jnet.ExtendedAddr
	IsShort   bool
}

// complete reconstructs the 64-bit Interface ID implied by an elided address
// (SAM/DAM == 0b11) from the link-layer address it was elided against.
func (e ElidableAddr) complete() (iid [8]byte) {
	if e.IsShort {
		iid[0], iid[1] = 0, 0
		iid[2], iid[3] = 0, 0xff
		iid[4], iid[5] = 0xfe, 0
		binary.BigEndian.PutUint16(iid[6:8], uint16(e.Short))
		return iid
	}
	binary.BigEndian.PutUint64(iid[:], uint64(e.Extended))
	iid[0] ^= 1 << 1 // toggle Universal/Local bit, RFC 2464 / RFC 4291 appendix A.
	return iid
}

// Packet is a view over an IPHC-compressed IPv6 header.
type Packet struct {
	buf []byte
	// len is the size of the IPHC header, computed once in Parse/New since
	// later fields (addresses) sit at offsets depending on earlier ones.
	len int
}

func ihpc0(p Packet) uint8 { return p.buf[0] }
func ihpc1(p Packet) uint8 { return p.buf[1] }

// tf returns the 2-bit Traffic Class/Flow Label compression field.
func (p Packet) tf() uint8 { return ihpc0(p) >> 3 & 0b11 }

// nh returns the Next Header compression bit.
func (p Packet) nh() bool { return ihpc0(p)&(1<<2) != 0 }

// hlim returns the 2-bit Hop Limit compression field.
func (p Packet) hlim() uint8 { return ihpc0(p) & 0b11 }

func (p Packet) cid() bool { return ihpc1(p)&(1<<7) != 0 }
func (p Packet) sac() bool { return ihpc1(p)&(1<<6) != 0 }
func (p Packet) sam() uint8 { return ihpc1(p) >> 4 & 0b11 }
func (p Packet) m() bool    { return ihpc1(p)&(1<<3) != 0 }
func (p Packet) dac() bool  { return ihpc1(p)&(1<<2) != 0 }
func (p Packet) dam() uint8 { return ihpc1(p) & 0b11 }

func tfSize(tf uint8) int {
	switch tf {
	case 0b00:
		return 4
	case 0b01:
		return 3
	case 0b10:
		return 1
	default: // 0b11
		return 0
	}
}

func nhSize(nh bool) int {
	if nh {
		return 0
	}
	return 1
}

func hlimSize(hlim uint8) int {
	if hlim == 0b00 {
		return 1
	}
	return 0
}

func srcAddrSize(sac bool, sam uint8) (int, error) {
	if !sac {
		switch sam {
		case 0b00:
			return 16, nil
		case 0b01:
			return 8, nil
		case 0b10:
			return 2, nil
		default:
			return 0, nil
		}
	}
	if sam != 0b00 {
		return 0, errStatefulSrc
	}
	return 0, nil // unspecified address, fully elided.
}

func destAddrSize(m, dac bool, dam uint8) (int, error) {
	if dac {
		return 0, errStatefulDest
	}
	if !m {
		switch dam {
		case 0b00:
			return 16, nil
		case 0b01:
			return 8, nil
		case 0b10:
			return 2, nil
		default:
			return 0, nil
		}
	}
	switch dam {
	case 0b00:
		return 16, nil
	case 0b01:
		return 6, nil
	case 0b10:
		return 4, nil
	default:
		return 1, nil
	}
}

// Parse validates buf as an IPHC header and returns a Packet view over it.
// The header's own size is computed and cached; use [Packet.Len] to find
// where the compressed payload begins.
func Parse(buf []byte) (Packet, error) {
	if len(buf) < 2 {
		return Packet{}, errShort
	}
	p := Packet{buf: buf}
	if ihpc0(p)>>5 != dispatch {
		return Packet{}, errBadDispatch
	}
	if p.cid() {
		return Packet{}, errContextUnsup
	}
	srcSize, err := srcAddrSize(p.sac(), p.sam())
	if err != nil {
		return Packet{}, err
	}
	dstSize, err := destAddrSize(p.m(), p.dac(), p.dam())
	if err != nil {
		return Packet{}, err
	}
	n := 2 + tfSize(p.tf()) + nhSize(p.nh()) + hlimSize(p.hlim()) + srcSize + dstSize
	if n > len(buf) {
		return Packet{}, errShort
	}
	p.len = n
	return p, nil
}

// Len returns the size in bytes of the IPHC header.
func (p Packet) Len() int { return p.len }

// RawData returns the underlying slice with which the packet was created.
func (p Packet) RawData() []byte { return p.buf }

// Payload returns the bytes following the IPHC header.
func (p Packet) Payload() []byte { return p.buf[p.len:] }

func (p Packet) fieldAfter(skip ...int) int {
	off := 2
	for _, s := range skip {
		off += s
	}
	return off
}

// NextHeader returns the IPv6 Next Header value carried inline, or reports
// ok=false if it was elided (NH=1), in which case the first byte of the
// payload is an NHC dispatch byte instead.
func (p Packet) NextHeader() (proto jnet.IPProto, ok bool) {
	if p.nh() {
		return 0, false
	}
	off := p.fieldAfter(tfSize(p.tf()))
	return jnet.IPProto(p.buf[off]), true
}

// HopLimit returns the decompressed Hop Limit field.
func (p Packet) HopLimit() uint8 {
	switch p.hlim() {
	case 0b01:
		return 1
	case 0b10:
		return 64
	case 0b11:
		return 255
	default:
		off := p.fieldAfter(tfSize(p.tf()), nhSize(p.nh()))
		return p.buf[off]
	}
}

// Source decompresses the Source Address field, consulting ctx when the
// address was elided down to an Interface ID or to nothing at all.
func (p Packet) Source(ctx Context) (addr jnet.Ipv6Addr) {
	off := p.fieldAfter(tfSize(p.tf()), nhSize(p.nh()), hlimSize(p.hlim()))
	if p.sac() {
		return addr // SAM==0b00 under SAC is the unspecified address "::".
	}
	switch p.sam() {
	case 0b00:
		copy(addr[:], p.buf[off:off+16])
	case 0b01:
		addr[0], addr[1] = 0xfe, 0x80
		copy(addr[8:], p.buf[off:off+8])
	case 0b10:
		addr[0], addr[1] = 0xfe, 0x80
		addr[11], addr[12] = 0xff, 0xfe
		copy(addr[14:], p.buf[off:off+2])
	default: // 0b11, fully elided.
		addr[0], addr[1] = 0xfe, 0x80
		if ctx.Source != nil {
			iid := ctx.Source.complete()
			copy(addr[8:], iid[:])
		}
	}
	return addr
}

// Destination decompresses the Destination Address field, consulting ctx
// when unicast and elided, and reconstructing the well-known multicast
// prefixes when compressed per RFC 6282 §3.2.3.
func (p Packet) Destination(ctx Context) (addr jnet.Ipv6Addr) {
	off := p.fieldAfter(tfSize(p.tf()), nhSize(p.nh()), hlimSize(p.hlim()))
	srcSize, _ := srcAddrSize(p.sac(), p.sam())
	off += srcSize

	if !p.m() {
		switch p.dam() {
		case 0b00:
			copy(addr[:], p.buf[off:off+16])
		case 0b01:
			addr[0], addr[1] = 0xfe, 0x80
			copy(addr[8:], p.buf[off:off+8])
		case 0b10:
			addr[0], addr[1] = 0xfe, 0x80
			addr[11], addr[12] = 0xff, 0xfe
			copy(addr[14:], p.buf[off:off+2])
		default:
			addr[0], addr[1] = 0xfe, 0x80
			if ctx.Destination != nil {
				iid := ctx.Destination.complete()
				copy(addr[8:], iid[:])
			}
		}
		return addr
	}

	addr[0] = 0xff
	switch p.dam() {
	case 0b00:
		copy(addr[:], p.buf[off:off+16])
	case 0b01: // ffXX::00XX:XXXX:XXXX, 48-bit group ID.
		addr[1] = p.buf[off]
		copy(addr[11:], p.buf[off+1:off+6])
	case 0b10: // ffXX::00XX:XXXX, 32-bit group ID.
		addr[1] = p.buf[off]
		copy(addr[13:], p.buf[off+1:off+4])
	default: // 0b11, ff02::00XX, 8-bit group ID.
		addr[1] = 0x02
		addr[15] = p.buf[off]
	}
	return addr
}

// New builds an IPHC-compressed header in buf for the given IPv6 fields,
// picking the shortest encoding ctx allows for each address. Traffic Class
// and Flow Label are always elided (tf=0b11): jnet has no caller that needs
// to preserve them across the compression boundary. buf must be at least
// 2+1+1+16+16 bytes; the returned Packet is truncated to the header's actual
// size via [Packet.Len].
func New(buf []byte, nextHeader jnet.IPProto, hopLimit uint8, src, dest jnet.Ipv6Addr, ctx Context) (Packet, error) {
	if len(buf) < 2 {
		return Packet{}, errShort
	}
	buf[0] = dispatch << 5
	buf[1] = 0
	off := 2

	// Traffic Class/Flow Label always elided.
	buf[0] |= 0b11 << 3

	buf[1] = 0
	off = encodeHopLimit(buf, off, hopLimit)
	off = encodeNextHeader(buf, off, nextHeader)
	off = encodeSource(buf, off, src, ctx.Source)
	off = encodeDestination(buf, off, dest, ctx.Destination)

	return Packet{buf: buf[:off], len: off}, nil
}

func encodeNextHeader(buf []byte, off int, proto jnet.IPProto) int {
	buf[off] = byte(proto)
	return off + 1
}

func encodeHopLimit(buf []byte, off int, hop uint8) int {
	switch hop {
	case 1:
		buf[0] |= 0b01
		return off
	case 64:
		buf[0] |= 0b10
		return off
	case 255:
		buf[0] |= 0b11
		return off
	default:
		buf[off] = hop
		return off + 1
	}
}

func encodeSource(buf []byte, off int, src jnet.Ipv6Addr, elide *ElidableAddr) int {
	if src.IsUnspecified() {
		buf[1] |= 1 << 6 // SAC=1, SAM=0b00: unspecified address.
		return off
	}
	if src.IsLinkLocal() && elide != nil {
		iid := elide.complete()
		if [8]byte(src[8:16]) == iid {
			buf[1] |= 0b11 << 4 // SAM=0b11, fully elided.
			return off
		}
		if elide.IsShort && src[8] == 0 && src[9] == 0 && src[10] == 0 && src[11] == 0xff && src[12] == 0xfe && src[13] == 0 &&
			binary.BigEndian.Uint16(src[14:16]) == uint16(elide.Short) {
			buf[1] |= 0b10 << 4 // SAM=0b10, 16-bit IID.
			binary.BigEndian.PutUint16(buf[off:], uint16(elide.Short))
			return off + 2
		}
	}
	if src.IsLinkLocal() {
		buf[1] |= 0b01 << 4 // SAM=0b01, 64-bit IID carried inline.
		copy(buf[off:], src[8:16])
		return off + 8
	}
	copy(buf[off:], src[:])
	return off + 16
}

func encodeDestination(buf []byte, off int, dest jnet.Ipv6Addr, elide *ElidableAddr) int {
	if dest.IsMulticast() {
		buf[1] |= 1 << 3 // M=1.
		if dest[1] == 0x02 && dest[2] == 0 && dest[3] == 0 && dest[4] == 0 && dest[5] == 0 &&
			dest[6] == 0 && dest[7] == 0 && dest[8] == 0 && dest[9] == 0 && dest[10] == 0 &&
			dest[11] == 0 && dest[12] == 0 && dest[13] == 0 && dest[14] == 0 {
			buf[1] |= 0b11 // ff02::00XX.
			buf[off] = dest[15]
			return off + 1
		}
		if dest[2] == 0 && dest[3] == 0 && dest[4] == 0 && dest[5] == 0 && dest[6] == 0 &&
			dest[7] == 0 && dest[8] == 0 && dest[9] == 0 && dest[10] == 0 && dest[11] == 0 && dest[12] == 0 {
			buf[1] |= 0b10 // ffXX::00XX:XXXX.
			buf[off] = dest[1]
			copy(buf[off+1:], dest[13:16])
			return off + 4
		}
		if dest[2] == 0 && dest[3] == 0 && dest[4] == 0 && dest[5] == 0 && dest[6] == 0 &&
			dest[7] == 0 && dest[8] == 0 && dest[9] == 0 && dest[10] == 0 {
			buf[1] |= 0b01 // ffXX::00XX:XXXX:XXXX.
			buf[off] = dest[1]
			copy(buf[off+1:], dest[11:16])
			return off + 6
		}
		copy(buf[off:], dest[:])
		return off + 16
	}

	if dest.IsLinkLocal() && elide != nil {
		iid := elide.complete()
		if [8]byte(dest[8:16]) == iid {
			buf[1] |= 0b11 // DAM=0b11, fully elided.
			return off
		}
		if elide.IsShort && dest[8] == 0 && dest[9] == 0 && dest[10] == 0 && dest[11] == 0xff && dest[12] == 0xfe && dest[13] == 0 &&
			binary.BigEndian.Uint16(dest[14:16]) == uint16(elide.Short) {
			buf[1] |= 0b10 // DAM=0b10.
			binary.BigEndian.PutUint16(buf[off:], uint16(elide.Short))
			return off + 2
		}
	}
	if dest.IsLinkLocal() {
		buf[1] |= 0b01 // DAM=0b01, 64-bit IID carried inline.
		copy(buf[off:], dest[8:16])
		return off + 8
	}
	copy(buf[off:], dest[:])
	return off + 16
}

func (p Packet) String() string {
	nh, ok := p.NextHeader()
	return fmt.Sprintf("IPHC len=%d nh_inline=%v nh=%v hlim=%d", p.len, ok, nh, p.HopLimit())
}
