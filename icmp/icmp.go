// Package icmp implements the Internet Control Message Protocol (ICMP) for
// IPv4, as defined by RFC 792. It follows the same zero-copy view-over-buffer
// design as the other jnet codec packages: [Frame] wraps a caller-supplied
// slice and the subtype wrappers ([FrameEcho], [FrameDestinationUnreachable],
// [FrameTimeExceeded]) narrow the [Frame.Code] accessor to the type-specific
// code enum via struct embedding.
package icmp

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jnet-io/jnet"
	"github.com/jnet-io/jnet/ipv4"
)

// Type identifies the ICMP message type.
type Type uint8

const (
	TypeEchoReply Type = 0 // echo reply
	TypeEcho      Type = 8 // echo

	TypeDestinationUnreachable Type = 3 // destination unreachable
	TypeSourceQuench           Type = 4 // source quench
	TypeRedirect               Type = 5 // redirect

	TypeTimeExceeded     Type = 11 // time exceeded
	TypeParameterProblem Type = 12 // parameter problem

	TypeTimestamp      Type = 13 // timestamp
	TypeTimestampReply Type = 14 // timestamp reply

	TypeInfoRequest      Type = 15 // information request
	TypeInfoRequestReply Type = 16 // information request reply
)

func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "EchoReply"
	case TypeEcho:
		return "Echo"
	case TypeDestinationUnreachable:
		return "DestinationUnreachable"
	case TypeSourceQuench:
		return "SourceQuench"
	case TypeRedirect:
		return "Redirect"
	case TypeTimeExceeded:
		return "TimeExceeded"
	case TypeParameterProblem:
		return "ParameterProblem"
	case TypeTimestamp:
		return "Timestamp"
	case TypeTimestampReply:
		return "TimestampReply"
	case TypeInfoRequest:
		return "InfoRequest"
	case TypeInfoRequestReply:
		return "InfoRequestReply"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// CodeTimeExceeded enumerates codes for [TypeTimeExceeded].
type CodeTimeExceeded uint8

const (
	CodeExceededInTransit  CodeTimeExceeded = iota // TTL exceeded in transit
	CodeFragmentReassembly                         // fragment reassembly time exceeded
)

// CodeDestinationUnreachable enumerates codes for [TypeDestinationUnreachable].
type CodeDestinationUnreachable uint8

const (
	CodeNetUnreachable     CodeDestinationUnreachable = iota // net unreachable
	CodeHostUnreachable                                      // host unreachable
	CodeProtoUnreachable                                     // protocol unreachable
	CodePortUnreachable                                      // port unreachable
	CodeFragNeededAndDFSet                                   // fragmentation needed and DF set
	CodeSourceRouteFailed                                    // source route failed
)

// CodeRedirect enumerates codes for [TypeRedirect].
type CodeRedirect uint8

const (
	CodeRedirectForNetwork       CodeRedirect = iota // redirect for network
	CodeRedirectForHost                              // redirect for host
	CodeRedirectForToSAndNetwork                      // redirect for ToS+network
	CodeRedirectToSAndHost                            // redirect for ToS+host
)

const sizeHeader = 4

var (
	errShortFrame   = errors.New("icmp: short frame")
	errBadCRC       = errors.New("icmp: checksum mismatch")
	errTypeMismatch = errors.New("icmp: type/code does not match requested subtype")
)

// NewFrame returns a Frame with data set to buf. An error is returned if buf
// is shorter than 4 bytes (Type, Code, Checksum).
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame is a generic, untyped view over an ICMP message.
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

// UpdateChecksum computes the ICMP checksum (a plain one's-complement sum
// over the whole message, there being no pseudo-header for ICMP) and writes
// it to the frame.
func (frm Frame) UpdateChecksum() uint16 {
	frm.SetCRC(0)
	var crc jnet.CRC791
	sum := jnet.NeverZeroChecksum(crc.PayloadSum16(frm.buf))
	frm.SetCRC(sum)
	return sum
}

func (frm Frame) payload() []byte {
	return frm.buf[sizeHeader:]
}

func (frm Frame) String() string {
	return fmt.Sprintf("ICMP %s code=%d", frm.Type(), frm.Code())
}

// Parse validates buf as a well-formed ICMP message, verifying the
// whole-message one's-complement checksum (RFC 792 has no pseudo-header),
// and returns a generic view over it. On any validation failure buf is left
// untouched and a zero Frame is returned alongside the error.
func Parse(buf []byte) (Frame, error) {
	frm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	var crc jnet.CRC791
	if crc.PayloadSum16(frm.buf) != 0 {
		return Frame{}, errBadCRC
	}
	return frm, nil
}

// AsEchoRequest narrows frm to the Echo Request subtype. It fails unless
// Type is [TypeEcho], Code is 0, and the buffer is long enough to hold the
// Identifier and Sequence Number fields.
func (frm Frame) AsEchoRequest() (FrameEcho, error) {
	if frm.Type() != TypeEcho || frm.Code() != 0 {
		return FrameEcho{}, errTypeMismatch
	}
	if len(frm.buf) < sizeHeader+4 {
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
	if len(frm.buf) < sizeHeader+4 {
		return FrameEcho{}, errShortFrame
	}
	return FrameEcho{Frame: frm}, nil
}

// AsDestinationUnreachable narrows frm to the Destination Unreachable
// subtype. It fails unless Type is [TypeDestinationUnreachable].
func (frm Frame) AsDestinationUnreachable() (FrameDestinationUnreachable, error) {
	if frm.Type() != TypeDestinationUnreachable {
		return FrameDestinationUnreachable{}, errTypeMismatch
	}
	return FrameDestinationUnreachable{Frame: frm}, nil
}

// AsTimeExceeded narrows frm to the Time Exceeded subtype. It fails unless
// Type is [TypeTimeExceeded].
func (frm Frame) AsTimeExceeded() (FrameTimeExceeded, error) {
	if frm.Type() != TypeTimeExceeded {
		return FrameTimeExceeded{}, errTypeMismatch
	}
	return FrameTimeExceeded{Frame: frm}, nil
}

// FrameDestinationUnreachable narrows [Frame.Code] to [CodeDestinationUnreachable].
type FrameDestinationUnreachable struct {
	Frame
}

func (frm FrameDestinationUnreachable) Code() CodeDestinationUnreachable {
	return CodeDestinationUnreachable(frm.Frame.Code())
}

func (frm FrameDestinationUnreachable) SetCode(code CodeDestinationUnreachable) {
	frm.Frame.SetCode(uint8(code))
}

// FrameTimeExceeded narrows [Frame.Code] to [CodeTimeExceeded].
type FrameTimeExceeded struct {
	Frame
}

func (frm FrameTimeExceeded) Code() CodeTimeExceeded {
	return CodeTimeExceeded(frm.Frame.Code())
}

func (frm FrameTimeExceeded) SetCode(code CodeTimeExceeded) {
	frm.Frame.SetCode(uint8(code))
}

// FrameEcho is the Echo/Echo Reply subtype (Identifier, Sequence Number, Data).
type FrameEcho struct {
	Frame
}

// NewEchoRequest returns an echo request view over buf with Type set to
// [TypeEcho] and Code set to 0.
func NewEchoRequest(buf []byte) (FrameEcho, error) {
	frm, err := NewFrame(buf)
	if err != nil {
		return FrameEcho{}, err
	}
	frm.SetType(TypeEcho)
	frm.SetCode(0)
	return FrameEcho{Frame: frm}, nil
}

// Reply flips the message in place from an echo request to an echo reply,
// keeping Identifier, Sequence Number and Data untouched, then updates the
// checksum. The caller must not have mutated the Type field in between.
func (frm FrameEcho) Reply() {
	frm.SetType(TypeEchoReply)
	frm.UpdateChecksum()
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
	return frm.buf[8:]
}

// BuildInIPv4 sets ifrm's Protocol to ICMP and returns a generic [Frame]
// view over ifrm's payload, truncated to length bytes.
func BuildInIPv4(ifrm ipv4.Frame, length uint16) (Frame, error) {
	ifrm.SetProtocol(jnet.IPProtoICMP)
	ifrm.SetTotalLength(uint16(ifrm.HeaderLength()) + length)
	return NewFrame(ifrm.Payload())
}

// BuildEchoRequestInIPv4 sets ifrm's Protocol to ICMP, builds an Echo
// Request view of icmpLen bytes over ifrm's payload, runs fn over it,
// updates the ICMP checksum, and updates ifrm's own header checksum on the
// way out. This is the IPv4-side equivalent of the ethernet/ipv4 builder
// helpers, living in this package rather than ipv4's so as not to introduce
// an import cycle (ipv4 cannot import the protocol packages that build
// inside it).
func BuildEchoRequestInIPv4(ifrm ipv4.Frame, icmpLen uint16, fn func(FrameEcho) error) (ipv4.ValidFrame, error) {
	ifrm.SetProtocol(jnet.IPProtoICMP)
	ifrm.SetTotalLength(uint16(ifrm.HeaderLength()) + icmpLen)
	frm, err := NewEchoRequest(ifrm.Payload()[:icmpLen])
	if err != nil {
		return ipv4.ValidFrame{}, err
	}
	if err := fn(frm); err != nil {
		return ipv4.ValidFrame{}, err
	}
	frm.UpdateChecksum()
	return ifrm.UpdateChecksum(), nil
}
