// Package ieee802154 implements the IEEE 802.15.4 MAC frame format used by
// low-power wireless personal area networks (the link layer 6LoWPAN runs
// over). Only the Data frame type with intra-PAN addressing is built by this
// package; PanCoordToNode, NodeToPanCoord and InterPan addressing are
// recognized as distinct [SrcDest] forms but rejected by [Frame.SetSrcDest]
// with [ErrUnsupportedAddressing] — the same scope this was distilled from
// leaves them unimplemented.
package ieee802154

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jnet-io/jnet"
)

// Type identifies the 802.15.4 frame type (3-bit field).
type Type uint8

const (
	TypeBeacon          Type = 0b000
	TypeData            Type = 0b001
	TypeAcknowledgement Type = 0b010
	TypeMACCommand      Type = 0b011
)

// AddrMode identifies the addressing mode of a source or destination address
// (2-bit field).
type AddrMode uint8

const (
	AddrModeNone     AddrMode = 0b00
	addrModeReserved AddrMode = 0b01
	AddrModeShort    AddrMode = 0b10
	AddrModeExtended AddrMode = 0b11
)

const sizeHeader = 3 // Frame Control (2 bytes) + Sequence Number (1 byte).

var (
	errShort                 = errors.New("ieee802154: short frame")
	errReservedAddrMode      = errors.New("ieee802154: reserved address mode")
	errMissingAddressing     = errors.New("ieee802154: frame other than ack/beacon needs at least one address")
	ErrUnsupportedAddressing = errors.New("ieee802154: only intra-PAN addressing is supported")
)

// NewFrame returns a Frame with data set to buf. An error is returned if buf
// is shorter than the fixed 3-byte header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShort
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an IEEE 802.15.4 MAC frame. Unlike
// every other codec in this module, multi-byte fields are little-endian,
// per the IEEE 802.15.4 standard.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) controlL() uint8 { return frm.buf[0] }
func (frm Frame) controlH() uint8 { return frm.buf[1] }

// FrameType returns the 3-bit frame type field.
func (frm Frame) FrameType() Type { return Type(frm.controlL() & 0b111) }

// SetFrameType sets the 3-bit frame type field.
func (frm Frame) SetFrameType(t Type) {
	frm.buf[0] = frm.controlL()&^0b111 | uint8(t)&0b111
}

// SecurityEnabled reports the Security Enabled subfield.
func (frm Frame) SecurityEnabled() bool { return frm.controlL()&(1<<3) != 0 }

// FramePending reports the Frame Pending subfield.
func (frm Frame) FramePending() bool { return frm.controlL()&(1<<4) != 0 }

// AckRequest reports the Ack Request subfield.
func (frm Frame) AckRequest() bool { return frm.controlL()&(1<<5) != 0 }

// SetAckRequest sets the Ack Request subfield.
func (frm Frame) SetAckRequest(v bool) { frm.setControlLBit(5, v) }

// IntraPAN reports the PAN ID Compression (Intra-PAN) subfield.
func (frm Frame) IntraPAN() bool { return frm.controlL()&(1<<6) != 0 }

// SetIntraPAN sets the PAN ID Compression (Intra-PAN) subfield.
func (frm Frame) SetIntraPAN(v bool) { frm.setControlLBit(6, v) }

func (frm Frame) setControlLBit(bit uint8, v bool) {
	if v {
		frm.buf[0] = frm.controlL() | 1<<bit
	} else {
		frm.buf[0] = frm.controlL() &^ (1 << bit)
	}
}

// DestAddrMode returns the 2-bit destination addressing mode field.
func (frm Frame) DestAddrMode() AddrMode { return AddrMode(frm.controlH() >> 2 & 0b11) }

// SetDestAddrMode sets the destination addressing mode field.
func (frm Frame) SetDestAddrMode(m AddrMode) {
	frm.buf[1] = frm.controlH()&^(0b11<<2) | uint8(m)&0b11<<2
}

// SrcAddrMode returns the 2-bit source addressing mode field.
func (frm Frame) SrcAddrMode() AddrMode { return AddrMode(frm.controlH() >> 6 & 0b11) }

// SetSrcAddrMode sets the source addressing mode field.
func (frm Frame) SetSrcAddrMode(m AddrMode) {
	frm.buf[1] = frm.controlH()&^(0b11<<6) | uint8(m)&0b11<<6
}

// SequenceNumber returns the frame's sequence number.
func (frm Frame) SequenceNumber() uint8 { return frm.buf[2] }

// SetSequenceNumber sets the frame's sequence number.
func (frm Frame) SetSequenceNumber(seq uint8) { frm.buf[2] = seq }

// headerLength returns the size of the addressing header given the current
// AddrMode/IntraPAN field values, per [Frame.ValidateSize].
func (frm Frame) headerLength() (int, error) {
	n := sizeHeader
	dam, sam := frm.DestAddrMode(), frm.SrcAddrMode()
	if dam == addrModeReserved || sam == addrModeReserved {
		return 0, errReservedAddrMode
	}
	if dam == AddrModeNone && sam == AddrModeNone {
		ft := frm.FrameType()
		if ft != TypeAcknowledgement && ft != TypeBeacon {
			return 0, errMissingAddressing
		}
	}
	if dam != AddrModeNone {
		n += 2 // Destination PAN ID.
		n += addrSize(dam)
	}
	if sam != AddrModeNone {
		if !frm.IntraPAN() {
			n += 2 // Source PAN ID.
		}
		n += addrSize(sam)
	}
	return n, nil
}

func addrSize(m AddrMode) int {
	if m == AddrModeExtended {
		return 8
	}
	return 2
}

// ValidateSize checks the frame's addressing fields are self-consistent and
// that buf is long enough to hold the resulting header.
func (frm Frame) ValidateSize(v *jnet.Validator) {
	hl, err := frm.headerLength()
	if err != nil {
		v.AddError(err)
		return
	}
	if hl > len(frm.buf) {
		v.AddError(errShort)
	}
}

// Parse validates buf as a well-formed 802.15.4 MAC frame header (addressing
// mode fields self-consistent, buf long enough for the resulting header) and
// returns a view over it. On any validation failure buf is left untouched
// and a zero Frame is returned alongside the error.
func Parse(buf []byte) (Frame, error) {
	frm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	var v jnet.Validator
	frm.ValidateSize(&v)
	if v.HasError() {
		return Frame{}, v.Err()
	}
	return frm, nil
}

// Payload returns the MAC payload following the addressing header. Call
// [Frame.ValidateSize] beforehand to avoid a panic.
func (frm Frame) Payload() []byte {
	hl, err := frm.headerLength()
	if err != nil {
		panic(err)
	}
	return frm.buf[hl:]
}

// DestPanId returns the destination PAN identifier, valid only when
// DestAddrMode is not [AddrModeNone].
func (frm Frame) DestPanId() jnet.PanId {
	return jnet.PanId(binary.LittleEndian.Uint16(frm.buf[sizeHeader:]))
}

// DestAddr returns the raw destination address bytes (2 for Short, 8 for
// Extended addressing), little-endian as transmitted on the wire.
func (frm Frame) DestAddr() []byte {
	off := sizeHeader
	if frm.DestAddrMode() != AddrModeNone {
		off += 2
	}
	return frm.buf[off : off+addrSize(frm.DestAddrMode())]
}

// SrcPanId returns the source PAN identifier. If IntraPAN is set there is no
// separate source PAN ID field and this returns the destination PAN ID.
func (frm Frame) SrcPanId() jnet.PanId {
	if frm.IntraPAN() {
		return frm.DestPanId()
	}
	off := sizeHeader
	if frm.DestAddrMode() != AddrModeNone {
		off += 2 + addrSize(frm.DestAddrMode())
	}
	return jnet.PanId(binary.LittleEndian.Uint16(frm.buf[off:]))
}

// SrcAddr returns the raw source address bytes (2 for Short, 8 for Extended
// addressing), little-endian as transmitted on the wire.
func (frm Frame) SrcAddr() []byte {
	off := sizeHeader
	if frm.DestAddrMode() != AddrModeNone {
		off += 2 + addrSize(frm.DestAddrMode())
	}
	if !frm.IntraPAN() {
		off += 2
	}
	return frm.buf[off : off+addrSize(frm.SrcAddrMode())]
}

// ClearHeader zeros out the fixed (non-variable) header contents.
func (frm Frame) ClearHeader() {
	for i := range frm.buf[:sizeHeader] {
		frm.buf[i] = 0
	}
}

// SrcDestKind selects the addressing relationship a frame is built with. See
// [SrcDest].
type SrcDestKind uint8

const (
	// IntraPan addresses both a source and a destination device within the
	// same PAN; the only form [Frame.SetSrcDest] implements.
	IntraPan SrcDestKind = iota
	// PanCoordToNode elides the source address because the sender is
	// implicitly the PAN coordinator.
	PanCoordToNode
	// NodeToPanCoord elides the destination address because the recipient
	// is implicitly the PAN coordinator.
	NodeToPanCoord
	// InterPan addresses devices on two different PANs.
	InterPan
)

// SrcDest describes the addressing fields of a Data frame. Only IntraPan is
// implemented by [Frame.SetSrcDest]; the others are recognized but rejected,
// matching the scope of the system this was distilled from.
type SrcDest struct {
	Kind       SrcDestKind
	PanId      jnet.PanId
	SrcPanId   jnet.PanId
	DestPanId  jnet.PanId
	SrcAddr    []byte // 2 bytes (Short) or 8 bytes (Extended), little-endian.
	DestAddr   []byte // 2 bytes (Short) or 8 bytes (Extended), little-endian.
	SrcMode    AddrMode
	DestMode   AddrMode
}

// SetSrcDest initializes frm as a Data frame with the addressing described
// by sd. Only sd.Kind == [IntraPan] is supported; any other kind returns
// [ErrUnsupportedAddressing] without modifying frm, mirroring the original
// implementation's deliberate non-support for coordinator-relative and
// inter-PAN addressing.
func (frm Frame) SetSrcDest(sd SrcDest) error {
	if sd.Kind != IntraPan {
		return ErrUnsupportedAddressing
	}
	frm.ClearHeader()
	frm.SetFrameType(TypeData)
	frm.SetDestAddrMode(sd.DestMode)
	frm.SetSrcAddrMode(sd.SrcMode)
	frm.SetIntraPAN(true)

	off := sizeHeader
	if sd.DestMode != AddrModeNone {
		binary.LittleEndian.PutUint16(frm.buf[off:], uint16(sd.PanId))
		off += 2
		copy(frm.buf[off:], sd.DestAddr)
		off += addrSize(sd.DestMode)
	}
	if sd.SrcMode != AddrModeNone {
		copy(frm.buf[off:], sd.SrcAddr)
	}
	return nil
}

func (frm Frame) String() string {
	return fmt.Sprintf("802.15.4 %v seq=%d dst_mode=%v src_mode=%v",
		frm.FrameType(), frm.SequenceNumber(), frm.DestAddrMode(), frm.SrcAddrMode())
}

func (t Type) String() string {
	switch t {
	case TypeBeacon:
		return "Beacon"
	case TypeData:
		return "Data"
	case TypeAcknowledgement:
		return "Ack"
	case TypeMACCommand:
		return "MACCommand"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

func (m AddrMode) String() string {
	switch m {
	case AddrModeNone:
		return "None"
	case AddrModeShort:
		return "Short"
	case AddrModeExtended:
		return "Extended"
	default:
		return fmt.Sprintf("AddrMode(%d)", uint8(m))
	}
}
