package sixlowpan

import (
	"testing"

	"github.com/jnet-io/jnet"
)

func TestRoundTripElidedLinkLocal(t *testing.T) {
	shortAddr := jnet.ShortAddr(0x1234)
	elide := &ElidableAddr{Short: shortAddr, IsShort: true}
	ctx := Context{Source: elide, Destination: elide}

	var src, dest jnet.Ipv6Addr
	src[0], src[1] = 0xfe, 0x80
	iid := elide.complete()
	copy(src[8:], iid[:])
	dest = src // same elidable link-local peer on both ends, for this test.

	buf := make([]byte, 2+16+16)
	pkt, err := New(buf, jnet.IPProtoUDP, 64, src, dest, ctx)
	if err != nil {
		t.Fatal(err)
	}
	// tf/hlim compress away entirely and both addresses fully elide, leaving
	// only the IPHC0/1 bytes plus the inline Next Header byte New always emits.
	if pkt.Len() != 3 {
		t.Fatalf("got header len %d, want 3", pkt.Len())
	}

	reparsed, err := Parse(pkt.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if reparsed.Len() != pkt.Len() {
		t.Fatalf("got reparsed len %d, want %d", reparsed.Len(), pkt.Len())
	}
	if got := reparsed.HopLimit(); got != 64 {
		t.Fatalf("got hop limit %d, want 64", got)
	}
	nh, ok := reparsed.NextHeader()
	if !ok || nh != jnet.IPProtoUDP {
		t.Fatalf("got next header (%v,%v), want (UDP,true)", nh, ok)
	}
	if got := reparsed.Source(ctx); got != src {
		t.Fatalf("got source %v, want %v", got, src)
	}
	if got := reparsed.Destination(ctx); got != dest {
		t.Fatalf("got destination %v, want %v", got, dest)
	}
}

func TestRoundTripGlobalAddress(t *testing.T) {
	var src, dest jnet.Ipv6Addr
	src = jnet.Ipv6Addr{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	dest = jnet.Ipv6Addr{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}

	buf := make([]byte, 2+1+1+16+16)
	pkt, err := New(buf, jnet.IPProtoTCP, 1, src, dest, Context{})
	if err != nil {
		t.Fatal(err)
	}
	// hlim=1 compresses to 2 bits; the Next Header byte is always inline.
	if pkt.Len() != 2+1+16+16 {
		t.Fatalf("got header len %d, want %d", pkt.Len(), 2+1+16+16)
	}

	reparsed, err := Parse(pkt.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if got := reparsed.HopLimit(); got != 1 {
		t.Fatalf("got hop limit %d, want 1", got)
	}
	nh, ok := reparsed.NextHeader()
	if !ok || nh != jnet.IPProtoTCP {
		t.Fatalf("got next header (%v,%v), want (TCP,true)", nh, ok)
	}
	if got := reparsed.Source(Context{}); got != src {
		t.Fatalf("got source %v, want %v", got, src)
	}
	if got := reparsed.Destination(Context{}); got != dest {
		t.Fatalf("got destination %v, want %v", got, dest)
	}
}

func TestRoundTripMulticast8Bit(t *testing.T) {
	var src jnet.Ipv6Addr
	src[0], src[1] = 0xfe, 0x80
	var dest jnet.Ipv6Addr
	dest[0], dest[1] = 0xff, 0x02 // ff02::1, all-nodes.
	dest[15] = 0x01

	buf := make([]byte, 2+16+16)
	pkt, err := New(buf, jnet.IPProtoIPv6ICMP, 255, src, dest, Context{})
	if err != nil {
		t.Fatal(err)
	}
	// sam=0b01 (64-bit IID inline, no elide context) + dam=0b11 (1-byte group id).
	if pkt.Len() != 2+1+8+1 {
		t.Fatalf("got header len %d, want %d", pkt.Len(), 2+1+8+1)
	}

	reparsed, err := Parse(pkt.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if got := reparsed.Destination(Context{}); got != dest {
		t.Fatalf("got destination %v, want %v (ff02::01 8-bit group id form)", got, dest)
	}
}

func TestRoundTripMulticast32Bit(t *testing.T) {
	var src jnet.Ipv6Addr
	src[0], src[1] = 0xfe, 0x80
	var dest jnet.Ipv6Addr
	dest[0], dest[1] = 0xff, 0x05
	dest[13], dest[14], dest[15] = 0x00, 0x01, 0x02 // 32-bit group id, ffXX::00XX:XXXX form.

	buf := make([]byte, 2+16+16)
	pkt, err := New(buf, jnet.IPProtoIPv6ICMP, 255, src, dest, Context{})
	if err != nil {
		t.Fatal(err)
	}
	reparsed, err := Parse(pkt.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if got := reparsed.Destination(Context{}); got != dest {
		t.Fatalf("got destination %v, want %v (32-bit group id form)", got, dest)
	}
}

func TestRoundTripMulticast48Bit(t *testing.T) {
	var src jnet.Ipv6Addr
	src[0], src[1] = 0xfe, 0x80
	var dest jnet.Ipv6Addr
	dest[0], dest[1] = 0xff, 0x08
	dest[11], dest[12], dest[13], dest[14], dest[15] = 0x01, 0x02, 0x03, 0x04, 0x05 // 48-bit group id.

	buf := make([]byte, 2+16+16)
	pkt, err := New(buf, jnet.IPProtoIPv6ICMP, 255, src, dest, Context{})
	if err != nil {
		t.Fatal(err)
	}
	reparsed, err := Parse(pkt.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if got := reparsed.Destination(Context{}); got != dest {
		t.Fatalf("got destination %v, want %v (48-bit group id form)", got, dest)
	}
}

func TestParseRejectsContextExtension(t *testing.T) {
	buf := make([]byte, 4)
	buf[0] = dispatch << 5
	buf[1] = 1 << 7 // CID=1.
	if _, err := Parse(buf); err != errContextUnsup {
		t.Fatalf("got err %v, want errContextUnsup", err)
	}
}

func TestParseRejectsBadDispatch(t *testing.T) {
	buf := make([]byte, 4)
	buf[0] = 0 // not the 0b011 dispatch prefix.
	if _, err := Parse(buf); err != errBadDispatch {
		t.Fatalf("got err %v, want errBadDispatch", err)
	}
}

func TestElidableAddrCompleteExtended(t *testing.T) {
	e := ElidableAddr{Extended: 0x0011223344556677}
	iid := e.complete()
	// Universal/Local bit (bit 1 of the first octet) must be toggled.
	if iid[0] != 0x00^(1<<1) {
		t.Fatalf("got iid[0] = %#02x, want U/L bit toggled", iid[0])
	}
	for i := 1; i < 8; i++ {
		want := byte(uint64(0x0011223344556677) >> (8 * (7 - i)))
		if iid[i] != want {
			t.Fatalf("iid[%d] = %#02x, want %#02x", i, iid[i], want)
		}
	}
}
