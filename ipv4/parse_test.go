package ipv4

import (
	"testing"

	"github.com/jnet-io/jnet"
)

func buildMinimalIPv4(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, sizeHeader+4)
	ifrm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetTotalLength(sizeHeader + 4)
	ifrm.SetTTL(64)
	ifrm.SetProtocol(jnet.IPProtoUDP)
	src := ifrm.SourceAddr()
	*src = [4]byte{192, 168, 0, 1}
	dst := ifrm.DestinationAddr()
	*dst = [4]byte{192, 168, 0, 2}
	return buf
}

func TestUpdateChecksumProducesValidFrame(t *testing.T) {
	buf := buildMinimalIPv4(t)
	ifrm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	vfrm := ifrm.UpdateChecksum()
	if vfrm.CRC() != ifrm.CalculateHeaderCRC() {
		t.Fatalf("got CRC %#04x, want %#04x", vfrm.CRC(), ifrm.CalculateHeaderCRC())
	}
	back := vfrm.Mutate()
	back.SetTTL(1)
	if back.CalculateHeaderCRC() == vfrm.CRC() {
		t.Fatal("expected checksum to go stale after mutating through Mutate()")
	}
}

func TestParseRoundTrip(t *testing.T) {
	buf := buildMinimalIPv4(t)
	ifrm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	ifrm.UpdateChecksum()

	vfrm, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if vfrm.TotalLength() != sizeHeader+4 {
		t.Fatalf("got TotalLength %d, want %d", vfrm.TotalLength(), sizeHeader+4)
	}
	if len(vfrm.RawData()) != sizeHeader+4 {
		t.Fatalf("got truncated length %d, want %d", len(vfrm.RawData()), sizeHeader+4)
	}
}

func TestParseRejectsBadChecksumWithoutMutatingBuf(t *testing.T) {
	buf := buildMinimalIPv4(t)
	ifrm, _ := NewFrame(buf)
	ifrm.UpdateChecksum()
	ifrm.SetCRC(ifrm.CRC() ^ 0xffff) // corrupt the checksum.
	orig := append([]byte(nil), buf...)

	_, err := Parse(buf)
	if err != errBadCRC {
		t.Fatalf("got err %v, want errBadCRC", err)
	}
	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("Parse mutated buf at byte %d on failure", i)
		}
	}
}

func TestParseRejectsShortBuffer(t *testing.T) {
	buf := buildMinimalIPv4(t)
	ifrm, _ := NewFrame(buf)
	ifrm.UpdateChecksum()

	if _, err := Parse(buf[:sizeHeader-1]); err == nil {
		t.Fatal("expected error for buffer shorter than minimum IPv4 header")
	}
}
