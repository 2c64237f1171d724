package icmp

import (
	"bytes"
	"testing"

	"github.com/jnet-io/jnet"
	"github.com/jnet-io/jnet/ipv4"
)

const wantICMPProto = jnet.IPProtoICMP

func TestEchoRequestReply(t *testing.T) {
	buf := make([]byte, sizeHeader+4+8)
	frm, err := NewEchoRequest(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetIdentifier(0x1234)
	frm.SetSequenceNumber(7)
	copy(frm.Data(), []byte("ping1234"))
	frm.UpdateChecksum()

	if frm.Type() != TypeEcho || frm.Code() != 0 {
		t.Fatalf("got (type=%v,code=%d), want (Echo,0)", frm.Type(), frm.Code())
	}
	if crc := frm.CRC(); crc == 0 {
		t.Fatal("checksum should never be zero (NeverZeroChecksum)")
	}
	verifyChecksum(t, frm.Frame)

	frm.Reply()
	if frm.Type() != TypeEchoReply {
		t.Fatalf("got type %v after Reply, want EchoReply", frm.Type())
	}
	if frm.Identifier() != 0x1234 || frm.SequenceNumber() != 7 {
		t.Fatal("Reply must not disturb identifier/sequence number")
	}
	if !bytes.Equal(frm.Data(), []byte("ping1234")) {
		t.Fatalf("Reply must not disturb data, got %q", frm.Data())
	}
	verifyChecksum(t, frm.Frame)
}

func TestDestinationUnreachableCode(t *testing.T) {
	buf := make([]byte, sizeHeader+4)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetType(TypeDestinationUnreachable)
	dufrm := FrameDestinationUnreachable{Frame: frm}
	dufrm.SetCode(CodePortUnreachable)
	if dufrm.Code() != CodePortUnreachable {
		t.Fatalf("got code %v, want CodePortUnreachable", dufrm.Code())
	}
}

func TestParseAndDowncast(t *testing.T) {
	buf := make([]byte, sizeHeader+4+8)
	frm, err := NewEchoRequest(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetIdentifier(0x1234)
	frm.SetSequenceNumber(7)
	copy(frm.Data(), []byte("ping1234"))
	frm.UpdateChecksum()

	parsed, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	echo, err := parsed.AsEchoRequest()
	if err != nil {
		t.Fatal(err)
	}
	if echo.Identifier() != 0x1234 || echo.SequenceNumber() != 7 {
		t.Fatalf("got (id=%#04x,seq=%d), want (0x1234,7)", echo.Identifier(), echo.SequenceNumber())
	}
	if _, err := parsed.AsEchoReply(); err != errTypeMismatch {
		t.Fatalf("got err %v, want errTypeMismatch for AsEchoReply on an Echo Request", err)
	}
	if _, err := parsed.AsDestinationUnreachable(); err != errTypeMismatch {
		t.Fatalf("got err %v, want errTypeMismatch for AsDestinationUnreachable", err)
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	buf := make([]byte, sizeHeader+4+8)
	frm, err := NewEchoRequest(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.UpdateChecksum()
	frm.SetCRC(frm.CRC() ^ 0xffff)

	if _, err := Parse(buf); err != errBadCRC {
		t.Fatalf("got err %v, want errBadCRC", err)
	}
}

func TestBuildEchoRequestInIPv4(t *testing.T) {
	buf := make([]byte, 20+sizeHeader+4+4)
	ifrm, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetTTL(64)
	vfrm, err := BuildEchoRequestInIPv4(ifrm, sizeHeader+4+4, func(efrm FrameEcho) error {
		efrm.SetIdentifier(1)
		efrm.SetSequenceNumber(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if vfrm.Protocol() != wantICMPProto {
		t.Fatalf("got protocol %v, want %v", vfrm.Protocol(), wantICMPProto)
	}
	if vfrm.CRC() != vfrm.Mutate().CalculateHeaderCRC() {
		t.Fatal("BuildEchoRequestInIPv4 must return a checksum-valid IPv4 view")
	}
}

func TestBuildInIPv4(t *testing.T) {
	buf := make([]byte, 20+sizeHeader+4)
	ifrm, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	ifrm.SetVersionAndIHL(4, 5)
	icmpFrm, err := BuildInIPv4(ifrm, sizeHeader+4)
	if err != nil {
		t.Fatal(err)
	}
	if ifrm.Protocol() != wantICMPProto {
		t.Fatalf("got protocol %v, want %v", ifrm.Protocol(), wantICMPProto)
	}
	icmpFrm.SetType(TypeEcho)
	if icmpFrm.Type() != TypeEcho {
		t.Fatal("icmp view over ipv4 payload did not retain the write")
	}
}

// verifyChecksum recomputes the stored checksum field from scratch and
// compares it against what UpdateChecksum wrote, the same way a receiver
// validating an incoming ICMP message would.
func verifyChecksum(t *testing.T, frm Frame) {
	t.Helper()
	want := frm.CRC()
	frm.SetCRC(0)
	var crc jnet.CRC791
	got := jnet.NeverZeroChecksum(crc.PayloadSum16(frm.RawData()))
	frm.SetCRC(got)
	if got != want {
		t.Fatalf("checksum mismatch: recomputed %#04x, stored %#04x", got, want)
	}
}
