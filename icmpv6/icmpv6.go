// Package icmpv6 implements ICMPv6 (RFC 4443) and the Neighbor Discovery
// Protocol messages (RFC 4861) needed to resolve IPv6 link-layer addresses:
// Echo Request/Reply and Neighbor Solicitation/Advertisement. As with [icmp],
// subtype wrappers narrow a generic [Frame] via struct embedding.
package icmpv6

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jnet-io/jnet"
	"github.com/jnet-io/jnet/ipv6"
)

// Type identifies the ICMPv6 message type.
type Type uint8

const (
	TypeDestinationUnreachable Type = 1
	TypePacketTooBig           Type = 2
	TypeTimeExceeded           Type = 3
	TypeParameterProblem       Type = 4

	TypeEchoRequest Type = 128
	TypeEchoReply   Type = 129

	TypeRouterSolicitation    Type = 133
	TypeRouterAdvertisement   Type = 134
	TypeNeighborSolicitation  Type = 135
	TypeNeighborAdvertisement Type = 136
	TypeRedirect              Type = 137
)

func (t Type) String() string {
	switch t {
	case TypeDestinationUnreachable:
		return "DestinationUnreachable"
	case TypePacketTooBig:
		return "PacketTooBig"
	case TypeTimeExceeded:
		return "TimeExceeded"
	case TypeParameterProblem:
		return "ParameterProblem"
	case TypeEchoRequest:
		return "EchoRequest"
	case TypeEchoReply:
		return "EchoReply"
	case TypeRouterSolicitation:
		return "RouterSolicitation"
	case TypeRouterAdvertisement:
		return "RouterAdvertisement"
	case TypeNeighborSolicitation:
		return "NeighborSolicitation"
	case TypeNeighborAdvertisement:
		return "NeighborAdvertisement"
	case TypeRedirect:
		return "Redirect"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// OptionType identifies a Neighbor Discovery option kind (RFC 4861 §4.6).
type OptionType uint8

const (
	OptionSourceLinkLayerAddress OptionType = 1
	OptionTargetLinkLayerAddress OptionType = 2
	OptionPrefixInformation      OptionType = 3
	OptionRedirectedHeader       OptionType = 4
	OptionMTU                    OptionType = 5
)

const (
	sizeHeader = 4  // Type, Code, Checksum.
	sizeEcho   = 8  // sizeHeader + Identifier + Sequence Number.
	sizeND     = 24 // sizeHeader + 4-byte reserved/flags + 16-byte target address.
)

var (
	errShortFrame      = errors.New("icmpv6: short frame")
	errShortND         = errors.New("icmpv6: short neighbor discovery message")
	errBadCRC          = errors.New("icmpv6: checksum mismatch")
	errTypeMismatch    = errors.New("icmpv6: type/code does not match requested subtype")
	errMulticastTarget = errors.New("icmpv6: neighbor discovery target must not be a multicast address")
)

// NewFrame returns a Frame with data set to buf. An error is returned if buf
// is shorter than 4 bytes (Type, Code, Checksum).
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame is a generic, untyped view over an ICMPv6 message.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) Type() Type { return Type(frm.buf[0]) }

func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

func (frm Frame) Code() uint8 { return frm.buf[1] }

func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field of the frame.
func (frm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(frm.buf[2:4])
}

// SetCRC sets the checksum field of the frame.
func (frm Frame) SetCRC(crc uint16) {
	binary.BigEndian.PutUint16(frm.buf[2:4], crc)
}

// UpdateChecksum computes the ICMPv6 checksum over the IPv6 pseudo-header
// seeded in crc plus the whole ICMPv6 message, and writes it to the frame.
// Unlike ICMPv4 and UDP-over-IPv4, a zero result is never remapped: ICMPv6
// has no "checksum not computed" convention.
func (frm Frame) UpdateChecksum(crc jnet.CRC791) uint16 {
	frm.SetCRC(0)
	crc.AddUint32(uint32(jnet.IPProtoIPv6ICMP))
	sum := crc.PayloadSum16(frm.buf)
	frm.SetCRC(sum)
	return sum
}

func (frm Frame) String() string {
	return fmt.Sprintf("ICMPv6 %s code=%d", frm.Type(), frm.Code())
}

// Parse validates buf as a well-formed ICMPv6 message, verifying its
// checksum against pseudo (seeded the same way as for [Frame.UpdateChecksum]:
// source/destination addresses and upper-layer length, not including the
// protocol number), and returns a generic view over it. On any validation
// failure buf is left untouched and a zero Frame is returned alongside the
// error.
func Parse(buf []byte, pseudo jnet.CRC791) (Frame, error) {
	frm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	pseudo.AddUint32(uint32(jnet.IPProtoIPv6ICMP))
	if pseudo.PayloadSum16(frm.buf) != 0 {
		return Frame{}, errBadCRC
	}
	return frm, nil
}

// AsEchoRequest narrows frm to the Echo Request subtype. It fails unless
// Type is [TypeEchoRequest], Code is 0, and the buffer is long enough to
// hold the Identifier and Sequence Number fields.
func (frm Frame) AsEchoRequest() (FrameEcho, error) {
	if frm.Type() != TypeEchoRequest || frm.Code() != 0 {
		return FrameEcho{}, errTypeMismatch
	}
	if len(frm.buf) < sizeEcho {
		return FrameEcho{}, errShortFrame
	}
	return FrameEcho{Frame: frm}, nil
}

// AsEchoReply narrows frm to the Echo Reply subtype. It fails unless Type
// is [TypeEchoReply], Code is 0, and the buffer is long enough to hold the
// Identifier and Sequence Number fields.
func (frm Frame) AsEchoReply() (FrameEcho, error) {
	if frm.Type() != TypeEchoReply || frm.Code() != 0 {
		return FrameEcho{}, errTypeMismatch
	}
	if len(frm.buf) < sizeEcho {
		return FrameEcho{}, errShortFrame
	}
	return FrameEcho{Frame: frm}, nil
}

// isMulticastTarget reports whether addr's first octet marks it as an IPv6
// multicast address (RFC 4291 §2.7): ff00::/8.
func isMulticastTarget(addr *[16]byte) bool { return addr[0] == 0xff }

// AsNeighborSolicitation narrows frm to the Neighbor Solicitation subtype.
// It fails unless Type is [TypeNeighborSolicitation], Code is 0, the buffer
// is at least 24 bytes, and the Target Address is not a multicast address
// (RFC 4861 §7.1.1).
func (frm Frame) AsNeighborSolicitation() (FrameNeighborSolicitation, error) {
	if frm.Type() != TypeNeighborSolicitation || frm.Code() != 0 {
		return FrameNeighborSolicitation{}, errTypeMismatch
	}
	if len(frm.buf) < sizeND {
		return FrameNeighborSolicitation{}, errShortND
	}
	ns := FrameNeighborSolicitation{Frame: frm}
	if isMulticastTarget(ns.Target()) {
		return FrameNeighborSolicitation{}, errMulticastTarget
	}
	return ns, nil
}

// AsNeighborAdvertisement narrows frm to the Neighbor Advertisement
// subtype. It fails unless Type is [TypeNeighborAdvertisement], Code is 0,
// the buffer is at least 24 bytes, and the Target Address is not a
// multicast address (RFC 4861 §7.1.2).
func (frm Frame) AsNeighborAdvertisement() (FrameNeighborAdvertisement, error) {
	if frm.Type() != TypeNeighborAdvertisement || frm.Code() != 0 {
		return FrameNeighborAdvertisement{}, errTypeMismatch
	}
	if len(frm.buf) < sizeND {
		return FrameNeighborAdvertisement{}, errShortND
	}
	na := FrameNeighborAdvertisement{Frame: frm}
	if isMulticastTarget(na.Target()) {
		return FrameNeighborAdvertisement{}, errMulticastTarget
	}
	return na, nil
}

// FrameEcho is the Echo Request/Reply subtype (Identifier, Sequence Number, Data).
type FrameEcho struct {
	Frame
}

// NewEchoRequest returns an echo request view over buf with Type set to
// [TypeEchoRequest] and Code set to 0.
func NewEchoRequest(buf []byte) (FrameEcho, error) {
	if len(buf) < sizeEcho {
		return FrameEcho{}, errShortFrame
	}
	frm, _ := NewFrame(buf)
	frm.SetType(TypeEchoRequest)
	frm.SetCode(0)
	return FrameEcho{Frame: frm}, nil
}

// Reply flips the message in place from an echo request to an echo reply.
// The caller must call [FrameEcho.UpdateChecksum] afterwards with a fresh
// IPv6 pseudo-header, since the reply may travel with swapped addresses.
func (frm FrameEcho) Reply() {
	frm.SetType(TypeEchoReply)
}

func (frm FrameEcho) Identifier() uint16 {
	return binary.BigEndian.Uint16(frm.buf[4:6])
}

func (frm FrameEcho) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(frm.buf[4:6], id)
}

func (frm FrameEcho) SequenceNumber() uint16 {
	return binary.BigEndian.Uint16(frm.buf[6:8])
}

func (frm FrameEcho) SetSequenceNumber(seq uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], seq)
}

func (frm FrameEcho) Data() []byte {
	return frm.buf[sizeEcho:]
}

// FrameNeighborSolicitation is the Neighbor Solicitation subtype (RFC 4861 §4.3).
type FrameNeighborSolicitation struct {
	Frame
}

// NewNeighborSolicitation returns a Neighbor Solicitation view over buf
// truncated to 24+optsLen bytes, with Type/Code/reserved set.
func NewNeighborSolicitation(buf []byte, optsLen int) (FrameNeighborSolicitation, error) {
	size := sizeND + optsLen
	if len(buf) < size {
		return FrameNeighborSolicitation{}, errShortND
	}
	buf = buf[:size]
	frm, _ := NewFrame(buf)
	frm.SetType(TypeNeighborSolicitation)
	frm.SetCode(0)
	binary.BigEndian.PutUint32(buf[4:8], 0) // reserved
	return FrameNeighborSolicitation{Frame: frm}, nil
}

// Target returns the solicitation's Target Address field.
func (frm FrameNeighborSolicitation) Target() *[16]byte {
	return (*[16]byte)(frm.buf[8:24])
}

// SetTarget sets the solicitation's Target Address field.
func (frm FrameNeighborSolicitation) SetTarget(addr jnet.Ipv6Addr) {
	copy(frm.buf[8:24], addr[:])
}

// SourceLinkLayerAddr returns the Source Link-Layer Address option contents,
// if present among the trailing options.
func (frm FrameNeighborSolicitation) SourceLinkLayerAddr() ([]byte, bool) {
	return findOption(frm.buf[sizeND:], OptionSourceLinkLayerAddress)
}

// FrameNeighborAdvertisement is the Neighbor Advertisement subtype (RFC 4861 §4.4).
type FrameNeighborAdvertisement struct {
	Frame
}

// NewNeighborAdvertisement returns a Neighbor Advertisement view over buf,
// truncated to 24 bytes plus an optional Target Link-Layer Address option of
// targetLLSize*8 bytes (0 omits the option).
func NewNeighborAdvertisement(buf []byte, targetLLSize uint8) (FrameNeighborAdvertisement, error) {
	size := sizeND + int(targetLLSize)*8
	if len(buf) < size {
		return FrameNeighborAdvertisement{}, errShortND
	}
	buf = buf[:size]
	frm, _ := NewFrame(buf)
	frm.SetType(TypeNeighborAdvertisement)
	frm.SetCode(0)
	binary.BigEndian.PutUint32(buf[4:8], 0) // clear reserved/flags
	if targetLLSize != 0 {
		buf[sizeND] = byte(OptionTargetLinkLayerAddress)
		buf[sizeND+1] = targetLLSize
	}
	return FrameNeighborAdvertisement{Frame: frm}, nil
}

const (
	flagRouter    = 1 << 31
	flagSolicited = 1 << 30
	flagOverride  = 1 << 29
)

func (frm FrameNeighborAdvertisement) flags() uint32 {
	return binary.BigEndian.Uint32(frm.buf[4:8])
}

func (frm FrameNeighborAdvertisement) setFlags(mask uint32, set bool) {
	f := frm.flags()
	if set {
		f |= mask
	} else {
		f &^= mask
	}
	binary.BigEndian.PutUint32(frm.buf[4:8], f)
}

// Router reports the Router flag.
func (frm FrameNeighborAdvertisement) Router() bool { return frm.flags()&flagRouter != 0 }

// SetRouter sets the Router flag.
func (frm FrameNeighborAdvertisement) SetRouter(v bool) { frm.setFlags(flagRouter, v) }

// Solicited reports the Solicited flag.
func (frm FrameNeighborAdvertisement) Solicited() bool { return frm.flags()&flagSolicited != 0 }

// SetSolicited sets the Solicited flag.
func (frm FrameNeighborAdvertisement) SetSolicited(v bool) { frm.setFlags(flagSolicited, v) }

// Override reports the Override flag.
func (frm FrameNeighborAdvertisement) Override() bool { return frm.flags()&flagOverride != 0 }

// SetOverride sets the Override flag.
func (frm FrameNeighborAdvertisement) SetOverride(v bool) { frm.setFlags(flagOverride, v) }

// Target returns the advertisement's Target Address field.
func (frm FrameNeighborAdvertisement) Target() *[16]byte {
	return (*[16]byte)(frm.buf[8:24])
}

// SetTarget sets the advertisement's Target Address field.
func (frm FrameNeighborAdvertisement) SetTarget(addr jnet.Ipv6Addr) {
	copy(frm.buf[8:24], addr[:])
}

// TargetLinkLayerAddr returns the mutable contents of the Target Link-Layer
// Address option, if the frame was constructed with one.
func (frm FrameNeighborAdvertisement) TargetLinkLayerAddr() ([]byte, bool) {
	return findOption(frm.buf[sizeND:], OptionTargetLinkLayerAddress)
}

// findOption scans a Neighbor Discovery options area (each option is a
// type byte, a length byte counting 8-octet units including the 2-byte
// option header, then length*8-2 bytes of content) for the first option of
// type want, returning its content.
func findOption(opts []byte, want OptionType) ([]byte, bool) {
	for len(opts) >= 2 {
		ty := OptionType(opts[0])
		lenUnits := int(opts[1])
		if lenUnits == 0 {
			return nil, false
		}
		total := lenUnits * 8
		if total > len(opts) {
			return nil, false
		}
		if ty == want {
			return opts[2:total], true
		}
		opts = opts[total:]
	}
	return nil, false
}

// BuildInIPv6 sets i6frm's NextHeader to ICMPv6 and returns a generic
// [Frame] view over i6frm's payload, truncated to length bytes.
func BuildInIPv6(i6frm ipv6.Frame, length uint16) (Frame, error) {
	i6frm.SetNextHeader(jnet.IPProtoIPv6ICMP)
	i6frm.SetPayloadLength(length)
	return NewFrame(i6frm.Payload())
}
