package ipv6

import (
	"encoding/binary"
	"errors"

	"github.com/jnet-io/jnet"
)

// NewFrame returns a new Frame with data set to buf.
// An error is returned if the buffer size is smaller than 40.
// Users should still call [Frame.ValidateSize] before working
// with payload/options of frames to avoid panics.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShortBuf
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an IPv6 packet
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [RFC8200].
//
// [RFC8200]: https://tools.ietf.org/html/rfc8200
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (i6frm Frame) RawData() []byte { return i6frm.buf }

// Payload returns the contents of the IPv6 packet, which may be zero sized.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (i6frm Frame) Payload() []byte {
	pl := i6frm.PayloadLength()
	return i6frm.buf[sizeHeader : sizeHeader+pl]
}

// VersionTrafficAndFlow returns the version, Traffic and Flow label fields of the IPv6 header.
// See [ToS] Traffic Class. Version should be 6 for IPv6.
func (i6frm Frame) VersionTrafficAndFlow() (version uint8, tos ToS, flow uint32) {
	v := binary.BigEndian.Uint32(i6frm.buf[0:4])
	version = uint8(v >> (32 - 4))
	tos = ToS(v >> (32 - 12))
	flow = v & 0x000f_ffff
	return version, tos, flow
}

// SetVersionTrafficAndFlow sets the version, ToS and Flow label in the IPv6 header. Version must be equal to 6.
// See [Frame.VersionTrafficAndFlow].
func (i6frm Frame) SetVersionTrafficAndFlow(version uint8, tos ToS, flow uint32) {
	v := flow | uint32(tos)<<(32-12) | uint32(version)<<(32-4)
	binary.BigEndian.PutUint32(i6frm.buf[0:4], v)
}

// PayloadLength returns the size of payload in octets(bytes) including any extension headers.
// The length is set to zero when a Hop-by-Hop extension header carries a Jumbo Payload option.
func (i6frm Frame) PayloadLength() uint16 {
	return binary.BigEndian.Uint16(i6frm.buf[4:6])
}

// SetPayloadLength sets the payload length field of the IPv6 header. See [Frame.PayloadLength].
func (i6frm Frame) SetPayloadLength(pl uint16) {
	binary.BigEndian.PutUint16(i6frm.buf[4:6], pl)
}

// NextHeader returns the Next Header field of the IPv6 header which usually specifies the transport layer
// protocol used by packet's payload.
func (i6frm Frame) NextHeader() jnet.IPProto {
	return jnet.IPProto(i6frm.buf[6])
}

// SetNextHeader sets the Next Header (protocol) field of the IPv6 header. See [Frame.NextHeader].
func (i6frm Frame) SetNextHeader(proto jnet.IPProto) {
	i6frm.buf[6] = uint8(proto)
}

// HopLimit returns the Hop Limit of the IPv6 header.
// This value is decremented by one at each forwarding node and the packet is discarded if it becomes 0.
// However, the destination node should process the packet normally even if received with a hop limit of 0.
func (i6frm Frame) HopLimit() uint8 {
	return i6frm.buf[7]
}

// SetHopLimit sets the Hop Limit field of the IPv6 header. See [Frame.HopLimit].
func (i6frm Frame) SetHopLimit(hop uint8) {
	i6frm.buf[7] = hop
}

// SourceAddr returns pointer to the sending node unicast IPv6 address in the IP header.
func (i6frm Frame) SourceAddr() *[16]byte {
	return (*[16]byte)(i6frm.buf[8:24])
}

// DestinationAddr returns pointer to the destination node unicast or multicast IPv6 address in the IP header.
func (i6frm Frame) DestinationAddr() *[16]byte {
	return (*[16]byte)(i6frm.buf[24:40])
}

func (i6frm Frame) CRCWritePseudo(crc *jnet.CRC791) {
	crc.Write(i6frm.SourceAddr()[:])
	crc.Write(i6frm.DestinationAddr()[:])
	crc.AddUint32(uint32(i6frm.PayloadLength()))
	crc.AddUint32(uint32(i6frm.NextHeader()))
}

// ClearHeader zeros out the header contents.
func (i6frm Frame) ClearHeader() {
	for i := range i6frm.buf[:sizeHeader] {
		i6frm.buf[i] = 0
	}
}

//
// Validate API.
//

var (
	errShortFrame = errors.New("ipv6: short frame")
	errShortBuf   = errors.New("ipv6: short buffer for frame")
	errBadVersion = errors.New("ipv6: bad version")
)

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (i6frm Frame) ValidateSize(v *jnet.Validator) {
	tl := i6frm.PayloadLength()
	if int(tl)+sizeHeader > len(i6frm.RawData()) {
		v.AddError(errShortFrame)
	}
}

var errExtensionHeader = errors.New("ipv6: extension headers not supported")

// isExtensionHeader reports whether proto identifies an IPv6 extension
// header rather than a final upper-layer protocol. Extension header chains
// are out of scope: [Frame.ValidateExceptCRC] rejects any NextHeader that
// names one instead of attempting to walk the chain.
func isExtensionHeader(proto jnet.IPProto) bool {
	switch proto {
	case jnet.IPProtoHopByHop, jnet.IPProtoIPv6Route, jnet.IPProtoIPv6Frag,
		jnet.IPProtoESP, jnet.IPProtoAH, jnet.IPProtoIPv6Opts, jnet.IPProtoMobilityHeader,
		jnet.IPProtoHIP, jnet.IPProtoShim6:
		return true
	}
	return false
}

// ValidateExceptCRC checks for invalid frame values; IPv6 has no header
// checksum of its own (the name mirrors [ipv4.Frame.ValidateExceptCRC] for
// symmetry with upper-layer pseudo-header checksums).
func (i6frm Frame) ValidateExceptCRC(v *jnet.Validator) {
	i6frm.ValidateSize(v)
	version, _, _ := i6frm.VersionTrafficAndFlow()
	if version != 6 {
		v.AddError(errBadVersion)
	}
	if isExtensionHeader(i6frm.NextHeader()) {
		v.AddError(errExtensionHeader)
	}
}

// Parse validates buf as a well-formed IPv6 header (size fields consistent,
// version 6, no extension header chain) and returns a view over it
// truncated to sizeHeader+PayloadLength. IPv6 carries no header checksum of
// its own, so there is nothing further to verify here; upper-layer
// checksums are verified by their own packages using [Frame.CRCWritePseudo].
// On any validation failure buf is left untouched and a zero Frame is
// returned alongside the error.
func Parse(buf []byte) (Frame, error) {
	i6frm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	var v jnet.Validator
	i6frm.ValidateExceptCRC(&v)
	if v.HasError() {
		return Frame{}, v.Err()
	}
	i6frm.buf = i6frm.buf[:sizeHeader+int(i6frm.PayloadLength())]
	return i6frm, nil
}
