package ipv6

import (
	"bytes"
	"testing"

	"github.com/jnet-io/jnet"
)

func TestNewFrameTooShort(t *testing.T) {
	buf := make([]byte, sizeHeader-1)
	if _, err := NewFrame(buf); err != errShortBuf {
		t.Fatalf("got err %v, want errShortBuf", err)
	}
}

func TestVersionTrafficAndFlowRoundTrip(t *testing.T) {
	buf := make([]byte, sizeHeader)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	wantTos := ToS(0b10111000) // DS=0x2e, ECN=0.
	frm.SetVersionTrafficAndFlow(6, wantTos, 0xabcde)

	version, tos, flow := frm.VersionTrafficAndFlow()
	if version != 6 {
		t.Fatalf("got version %d, want 6", version)
	}
	if tos != wantTos {
		t.Fatalf("got ToS %#08b, want %#08b", tos, wantTos)
	}
	if flow != 0xabcde {
		t.Fatalf("got flow %#05x, want 0xabcde", flow)
	}
	if tos.DS() != 0b101110 {
		t.Fatalf("got DS %#06b, want %#06b", tos.DS(), 0b101110)
	}
}

func TestHeaderFieldAccessors(t *testing.T) {
	buf := make([]byte, sizeHeader+10)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetPayloadLength(10)
	frm.SetNextHeader(jnet.IPProtoUDP)
	frm.SetHopLimit(64)
	src := jnet.Ipv6Addr{0xfe, 0x80}
	dst := jnet.Ipv6Addr{0x20, 0x01, 0x0d, 0xb8}
	copy(frm.SourceAddr()[:], src[:])
	copy(frm.DestinationAddr()[:], dst[:])

	if frm.PayloadLength() != 10 {
		t.Fatalf("got payload length %d, want 10", frm.PayloadLength())
	}
	if frm.NextHeader() != jnet.IPProtoUDP {
		t.Fatalf("got next header %v, want UDP", frm.NextHeader())
	}
	if frm.HopLimit() != 64 {
		t.Fatalf("got hop limit %d, want 64", frm.HopLimit())
	}
	if !bytes.Equal(frm.SourceAddr()[:], src[:]) {
		t.Fatalf("got source %x, want %x", frm.SourceAddr()[:], src[:])
	}
	if !bytes.Equal(frm.DestinationAddr()[:], dst[:]) {
		t.Fatalf("got destination %x, want %x", frm.DestinationAddr()[:], dst[:])
	}
	if len(frm.Payload()) != 10 {
		t.Fatalf("got payload len %d, want 10", len(frm.Payload()))
	}
}

func TestValidateSizeRejectsShortFrame(t *testing.T) {
	buf := make([]byte, sizeHeader+4)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetPayloadLength(100) // declared size exceeds the actual buffer.

	var vld jnet.Validator
	frm.ValidateSize(&vld)
	if !vld.HasError() {
		t.Fatal("expected validation error: declared payload length exceeds buffer")
	}
}

func TestValidateExceptCRCRejectsBadVersion(t *testing.T) {
	buf := make([]byte, sizeHeader)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetVersionTrafficAndFlow(4, 0, 0) // not 6.
	frm.SetNextHeader(jnet.IPProtoUDP)

	var vld jnet.Validator
	vld.AllowMultipleErrors(true)
	frm.ValidateExceptCRC(&vld)
	if !vld.HasError() {
		t.Fatal("expected validation error: version must be 6")
	}
}

func TestValidateExceptCRCRejectsExtensionHeader(t *testing.T) {
	buf := make([]byte, sizeHeader)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetVersionTrafficAndFlow(6, 0, 0)
	frm.SetNextHeader(jnet.IPProtoHopByHop)

	var vld jnet.Validator
	frm.ValidateExceptCRC(&vld)
	if !vld.HasError() {
		t.Fatal("expected validation error: extension headers unsupported")
	}
}

func TestCRCWritePseudo(t *testing.T) {
	buf := make([]byte, sizeHeader+5)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetPayloadLength(5)
	frm.SetNextHeader(jnet.IPProtoUDP)
	src := jnet.Ipv6Addr{0xfe, 0x80}
	dst := jnet.Ipv6Addr{0x20, 0x01, 0x0d, 0xb8}
	copy(frm.SourceAddr()[:], src[:])
	copy(frm.DestinationAddr()[:], dst[:])

	var got jnet.CRC791
	frm.CRCWritePseudo(&got)

	var want jnet.CRC791
	want.Write(src[:])
	want.Write(dst[:])
	want.AddUint32(5)
	want.AddUint32(uint32(jnet.IPProtoUDP))

	if got.Sum16() != want.Sum16() {
		t.Fatalf("got pseudo-header sum %#04x, want %#04x", got.Sum16(), want.Sum16())
	}
}

func TestParse(t *testing.T) {
	buf := make([]byte, sizeHeader+5+3) // 3 trailing bytes of slack beyond the payload.
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetVersionTrafficAndFlow(6, 0, 0)
	frm.SetPayloadLength(5)
	frm.SetNextHeader(jnet.IPProtoUDP)

	parsed, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.RawData()) != sizeHeader+5 {
		t.Fatalf("got truncated length %d, want %d", len(parsed.RawData()), sizeHeader+5)
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	buf := make([]byte, sizeHeader)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetVersionTrafficAndFlow(4, 0, 0)
	frm.SetNextHeader(jnet.IPProtoUDP)

	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error parsing a non-IPv6 version")
	}
}

func TestClearHeader(t *testing.T) {
	buf := make([]byte, sizeHeader)
	for i := range buf {
		buf[i] = 0xff
	}
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.ClearHeader()
	for i, b := range frm.RawData()[:sizeHeader] {
		if b != 0 {
			t.Fatalf("buf[%d] = %#02x, want 0 after ClearHeader", i, b)
		}
	}
}
