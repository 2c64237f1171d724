package icmpv6

import (
	"bytes"
	"testing"

	"github.com/jnet-io/jnet"
)

func TestEchoRequestReply(t *testing.T) {
	buf := make([]byte, sizeEcho+4)
	frm, err := NewEchoRequest(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetIdentifier(42)
	frm.SetSequenceNumber(1)
	copy(frm.Data(), []byte("ping"))

	var crc jnet.CRC791
	crc.AddUint32(16) // pseudo-header length, for the purposes of this test.
	frm.UpdateChecksum(crc)
	if frm.Type() != TypeEchoRequest || frm.Code() != 0 {
		t.Fatalf("got (type=%v,code=%d), want (EchoRequest,0)", frm.Type(), frm.Code())
	}

	frm.Reply()
	if frm.Type() != TypeEchoReply {
		t.Fatalf("got type %v after Reply, want EchoReply", frm.Type())
	}
	if frm.Identifier() != 42 || frm.SequenceNumber() != 1 {
		t.Fatal("Reply must not disturb identifier/sequence number")
	}
	if !bytes.Equal(frm.Data(), []byte("ping")) {
		t.Fatalf("Reply must not disturb data, got %q", frm.Data())
	}
}

func TestChecksumNotRemappedToNonzero(t *testing.T) {
	// Unlike ICMPv4/UDP, UpdateChecksum must return the raw one's-complement
	// sum unmodified: RFC 4443 has no "checksum not computed" value to remap
	// a zero result to.
	buf := make([]byte, sizeEcho)
	frm, err := NewEchoRequest(buf)
	if err != nil {
		t.Fatal(err)
	}
	// 16 + 58 + 0x8000 (type 128) + 0x7fb3 + 2 sums to 0xffff, so the
	// checksum folds to zero: the case a remapping would turn into 0xffff.
	frm.SetIdentifier(0x7fb3)
	frm.SetSequenceNumber(2)

	var pseudo jnet.CRC791
	pseudo.AddUint32(16)
	got := frm.UpdateChecksum(pseudo)

	frm.SetCRC(0)
	var want jnet.CRC791
	want.AddUint32(16)
	want.AddUint32(uint32(jnet.IPProtoIPv6ICMP))
	wantSum := want.PayloadSum16(frm.RawData())
	if got != wantSum {
		t.Fatalf("UpdateChecksum returned %#04x, want raw sum %#04x (no NeverZeroChecksum remapping)", got, wantSum)
	}
}

func TestNeighborSolicitationWithSourceLinkLayerOption(t *testing.T) {
	const optLen = 8 // 1 unit of 8 octets: type, len, 6-byte MAC.
	buf := make([]byte, sizeND+optLen)
	frm, err := NewNeighborSolicitation(buf, optLen)
	if err != nil {
		t.Fatal(err)
	}
	target := jnet.Ipv6Addr{0x20, 0x01, 0xd, 0xb8}
	frm.SetTarget(target)
	if got := *frm.Target(); got != target {
		t.Fatalf("got target %v, want %v", got, target)
	}

	opts := buf[sizeND:]
	opts[0] = byte(OptionSourceLinkLayerAddress)
	opts[1] = 1 // 8 octets.
	mac := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	copy(opts[2:8], mac)

	got, ok := frm.SourceLinkLayerAddr()
	if !ok {
		t.Fatal("expected to find Source Link-Layer Address option")
	}
	if !bytes.Equal(got, mac) {
		t.Fatalf("got option content %x, want %x", got, mac)
	}
}

func TestNeighborAdvertisementFlags(t *testing.T) {
	buf := make([]byte, sizeND+8)
	frm, err := NewNeighborAdvertisement(buf, 1)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetRouter(true)
	frm.SetSolicited(true)
	frm.SetOverride(false)
	if !frm.Router() || !frm.Solicited() || frm.Override() {
		t.Fatalf("got flags (router=%v,solicited=%v,override=%v), want (true,true,false)",
			frm.Router(), frm.Solicited(), frm.Override())
	}

	target := jnet.Ipv6Addr{0xfe, 0x80}
	frm.SetTarget(target)
	if got := *frm.Target(); got != target {
		t.Fatalf("got target %v, want %v", got, target)
	}

	mac := []byte{1, 2, 3, 4, 5, 6}
	copy(buf[sizeND+2:sizeND+8], mac)
	got, ok := frm.TargetLinkLayerAddr()
	if !ok {
		t.Fatal("expected to find Target Link-Layer Address option")
	}
	if !bytes.Equal(got, mac) {
		t.Fatalf("got option content %x, want %x", got, mac)
	}
}

func TestParseAndDowncast(t *testing.T) {
	buf := make([]byte, sizeEcho+4)
	frm, err := NewEchoRequest(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetIdentifier(1)
	frm.SetSequenceNumber(1)
	var pseudo jnet.CRC791
	pseudo.AddUint32(uint32(sizeEcho + 4))
	frm.UpdateChecksum(pseudo)

	var verify jnet.CRC791
	verify.AddUint32(uint32(sizeEcho + 4))
	parsed, err := Parse(buf, verify)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parsed.AsEchoRequest(); err != nil {
		t.Fatalf("AsEchoRequest: %v", err)
	}
	if _, err := parsed.AsEchoReply(); err != errTypeMismatch {
		t.Fatalf("got err %v, want errTypeMismatch", err)
	}
}

func TestAsNeighborSolicitationRejectsMulticastTarget(t *testing.T) {
	buf := make([]byte, sizeND)
	frm, err := NewNeighborSolicitation(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetTarget(jnet.Ipv6Addr{0xff, 0x02}) // ff02::, a multicast address.

	generic, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := generic.AsNeighborSolicitation(); err != errMulticastTarget {
		t.Fatalf("got err %v, want errMulticastTarget", err)
	}
}

func TestFindOptionMissing(t *testing.T) {
	buf := make([]byte, sizeND)
	frm, err := NewNeighborSolicitation(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := frm.SourceLinkLayerAddr(); ok {
		t.Fatal("expected no option in an empty options area")
	}
}
