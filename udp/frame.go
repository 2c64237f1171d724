package udp

import (
	"encoding/binary"
	"errors"

	"github.com/jnet-io/jnet"
)

// NewFrame returns a new Frame with data set to buf.
// An error is returned if the buffer size is smaller than 8.
// Users should still call [Frame.ValidateSize] before working
// with payload/options of frames to avoid panics.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: buf}, errors.New("UDP packet too short")
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of a UDP datagram
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [RFC768].
//
// [RFC768]: https://tools.ietf.org/html/rfc768
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (ufrm Frame) RawData() []byte { return ufrm.buf }

// SourcePort identifies the sending port for the UDP packet. Must be non-zero.
func (ufrm Frame) SourcePort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[0:2])
}

// SetSourcePort sets UDP source port. See [Frame.SourcePort]
func (ufrm Frame) SetSourcePort(src uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[0:2], src)
}

// DestinationPort identifies the receiving port for the UDP packet. Must be non-zero.
func (ufrm Frame) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[2:4])
}

// SetDestinationPort sets UDP destination port. See [Frame.DestinationPort]
func (ufrm Frame) SetDestinationPort(dst uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[2:4], dst)
}

// Length specifies length in bytes of UDP header and UDP payload. The minimum length
// is 8 bytes (UDP header length). This field should match the result of the IP header
// TotalLength field minus the IP header size: udp.Length == ip.TotalLength - 4*ip.IHL
func (ufrm Frame) Length() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[4:6])
}

// SetLength sets the UDP header's length field. See [Frame.Length].
func (ufrm Frame) SetLength(length uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[4:6], length)
}

// CRC returns the checksum field in the UDP header.
func (ufrm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[6:8])
}

// SetCRC sets the UDP header's CRC field. See [Frame.CRC].
func (ufrm Frame) SetCRC(checksum uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[6:8], checksum)
}

// Payload returns the payload content section of the UDP packet.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (ufrm Frame) Payload() []byte {
	l := ufrm.Length()
	return ufrm.buf[sizeHeader:l]
}

// UpdateChecksumWithPseudo computes the UDP checksum given a CRC791 already
// seeded with the IPv4 or IPv6 pseudo-header (see [ipv4.Frame.CRCWriteUDPPseudo]
// and [ipv6.Frame.CRCWritePseudo], both of which already fold in the UDP
// length), writes it into the CRC field and returns it.
func (ufrm Frame) UpdateChecksumWithPseudo(crc jnet.CRC791) uint16 {
	ufrm.SetCRC(0)
	sum := jnet.NeverZeroChecksum(crc.PayloadSum16(ufrm.buf[:ufrm.Length()]))
	ufrm.SetCRC(sum)
	return sum
}

// ZeroChecksum clears the checksum field. A zero UDP checksum means
// "checksum not computed" and is only valid over IPv4.
func (ufrm Frame) ZeroChecksum() {
	ufrm.SetCRC(0)
}

// ClearHeader zeros out the header contents.
func (frm Frame) ClearHeader() {
	for i := range frm.buf[:sizeHeader] {
		frm.buf[i] = 0
	}
}

//
// Validation API.
//

var (
	errBadLen      = errors.New("udp: bad UDP length")
	errShort       = errors.New("udp: short buffer")
	errBadCRC      = errors.New("udp: checksum mismatch")
	errZeroCRC     = errors.New("udp: checksum is mandatory and must not be zero")
)

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (ufrm Frame) ValidateSize(v *jnet.Validator) {
	ul := ufrm.Length()
	if ul < sizeHeader {
		v.AddError(errBadLen)
	}
	if int(ul) > len(ufrm.RawData()) {
		v.AddError(errShort)
	}
}

// Parse validates buf as a well-formed UDP datagram and returns a view
// truncated to its declared Length. If pseudo is non-nil and the checksum
// field is nonzero, the checksum is verified against *pseudo (seeded the
// same way as for [Frame.UpdateChecksumWithPseudo]). checksumMandatory
// rejects a zero checksum field, as required over IPv6 (RFC 8200 §8.1);
// over IPv4 a zero checksum means "not computed" and is accepted. On any
// validation failure buf is left untouched and a zero Frame is returned
// alongside the error.
func Parse(buf []byte, pseudo *jnet.CRC791, checksumMandatory bool) (Frame, error) {
	ufrm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	var v jnet.Validator
	ufrm.ValidateSize(&v)
	if v.HasError() {
		return Frame{}, v.Err()
	}
	ufrm.buf = ufrm.buf[:ufrm.Length()]
	if ufrm.CRC() == 0 {
		if checksumMandatory {
			return Frame{}, errZeroCRC
		}
		return ufrm, nil
	}
	if pseudo != nil && pseudo.PayloadSum16(ufrm.buf) != 0 {
		return Frame{}, errBadCRC
	}
	return ufrm, nil
}
