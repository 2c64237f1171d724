package jnet

import "fmt"

// MacAddr is an IEEE 802 6-octet hardware (link-layer) address.
type MacAddr [6]byte

// BroadcastMAC is the all-ones Ethernet/802.15.4 broadcast address.
var BroadcastMAC = MacAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// IsUnicast reports whether addr is a unicast address, i.e. the
// least-significant bit of the first octet (the I/G bit) is clear.
func (addr MacAddr) IsUnicast() bool { return addr[0]&1 == 0 }

// IsBroadcast reports whether addr is the all-ones broadcast address.
func (addr MacAddr) IsBroadcast() bool { return addr == BroadcastMAC }

// IsMulticast reports whether addr is a multicast address. The broadcast
// address, despite having its I/G bit set, is not considered multicast.
func (addr MacAddr) IsMulticast() bool {
	return !addr.IsUnicast() && !addr.IsBroadcast()
}

// IsIPv4Multicast reports whether addr is a MAC address derived from an
// IPv4 multicast address, i.e. starts with 01:00:5e and has the top bit of
// the fourth octet clear.
func (addr MacAddr) IsIPv4Multicast() bool {
	return addr[0] == 0x01 && addr[1] == 0x00 && addr[2] == 0x5e && addr[3]&0x80 == 0
}

// IsIPv6Multicast reports whether addr is a MAC address derived from an
// IPv6 multicast address, i.e. starts with 33:33.
func (addr MacAddr) IsIPv6Multicast() bool {
	return addr[0] == 0x33 && addr[1] == 0x33
}

// EUI64 expands addr into its Modified EUI-64 form: the Universal/Local bit
// of the first octet is toggled and ff:fe is inserted between the third and
// fourth octets, per RFC 4291 Appendix A.
func (addr MacAddr) EUI64() (eui [8]byte) {
	eui[0] = addr[0] ^ (1 << 1)
	eui[1] = addr[1]
	eui[2] = addr[2]
	eui[3] = 0xff
	eui[4] = 0xfe
	eui[5] = addr[3]
	eui[6] = addr[4]
	eui[7] = addr[5]
	return eui
}

// LinkLocalAddr derives the IPv6 link-local address fe80::/64 + Modified
// EUI-64 that is autoconfigured from addr.
func (addr MacAddr) LinkLocalAddr() (ip Ipv6Addr) {
	ip[0] = 0xfe
	ip[1] = 0x80
	eui := addr.EUI64()
	copy(ip[8:], eui[:])
	return ip
}

func (addr MacAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		addr[0], addr[1], addr[2], addr[3], addr[4], addr[5])
}

// Ipv4Addr is a 4-octet IPv4 address.
type Ipv4Addr [4]byte

var (
	Ipv4Broadcast   = Ipv4Addr{255, 255, 255, 255}
	Ipv4Unspecified = Ipv4Addr{0, 0, 0, 0}
)

// IsUnspecified reports whether addr is 0.0.0.0.
func (addr Ipv4Addr) IsUnspecified() bool { return addr == Ipv4Unspecified }

// IsBroadcast reports whether addr is the limited broadcast address 255.255.255.255.
func (addr Ipv4Addr) IsBroadcast() bool { return addr == Ipv4Broadcast }

// IsMulticast reports whether addr lies in the 224.0.0.0/4 multicast range.
func (addr Ipv4Addr) IsMulticast() bool { return addr[0]&0xf0 == 0xe0 }

// IsLoopback reports whether addr lies in the 127.0.0.0/8 loopback range.
func (addr Ipv4Addr) IsLoopback() bool { return addr[0] == 127 }

func (addr Ipv4Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", addr[0], addr[1], addr[2], addr[3])
}

// Ipv6Addr is a 16-octet IPv6 address.
type Ipv6Addr [16]byte

var Ipv6Unspecified = Ipv6Addr{}

// IsUnspecified reports whether addr is the all-zero address ::.
func (addr Ipv6Addr) IsUnspecified() bool { return addr == Ipv6Unspecified }

// IsLoopback reports whether addr is the loopback address ::1.
func (addr Ipv6Addr) IsLoopback() bool {
	return addr == Ipv6Addr{15: 1}
}

// IsMulticast reports whether addr lies in the ff00::/8 multicast range.
func (addr Ipv6Addr) IsMulticast() bool { return addr[0] == 0xff }

// IsLinkLocal reports whether addr lies in the fe80::/10 link-local range.
func (addr Ipv6Addr) IsLinkLocal() bool { return addr[0] == 0xfe && addr[1]&0xc0 == 0x80 }

// SolicitedNodeMulticast returns the solicited-node multicast address
// ff02::1:ffXX:XXXX corresponding to addr, used by Neighbor Discovery.
func (addr Ipv6Addr) SolicitedNodeMulticast() (sn Ipv6Addr) {
	sn[0], sn[1] = 0xff, 0x02
	sn[11] = 0x01
	sn[12] = 0xff
	sn[13], sn[14], sn[15] = addr[13], addr[14], addr[15]
	return sn
}

func (addr Ipv6Addr) String() string {
	// Minimal zero-compression formatting; good enough for diagnostics.
	var b [39]byte
	n := 0
	zstart, zlen := -1, 0
	bestStart, bestLen := -1, 0
	for i := 0; i < 16; i += 2 {
		if addr[i] == 0 && addr[i+1] == 0 {
			if zstart < 0 {
				zstart = i
			}
			zlen += 2
			if zlen > bestLen {
				bestStart, bestLen = zstart, zlen
			}
		} else {
			zstart, zlen = -1, 0
		}
	}
	for i := 0; i < 16; i += 2 {
		if bestLen > 2 && i == bestStart {
			b[n] = ':'
			b[n+1] = ':'
			n += 2
			i += bestLen - 2
			continue
		}
		if n > 0 && b[n-1] != ':' {
			b[n] = ':'
			n++
		}
		group := uint16(addr[i])<<8 | uint16(addr[i+1])
		n += copyHex(b[n:], group)
	}
	return string(b[:n])
}

func copyHex(dst []byte, v uint16) int {
	const hex = "0123456789abcdef"
	tmp := [4]byte{hex[v>>12&0xf], hex[v>>8&0xf], hex[v>>4&0xf], hex[v&0xf]}
	i := 0
	for i < 3 && tmp[i] == '0' {
		i++
	}
	return copy(dst, tmp[i:])
}

// PanId is an IEEE 802.15.4 16-bit personal area network identifier.
type PanId uint16

// BroadcastPanId is the reserved PAN identifier meaning "not associated"/broadcast.
const BroadcastPanId PanId = 0xffff

// ShortAddr is an IEEE 802.15.4 16-bit short device address.
type ShortAddr uint16

// BroadcastShortAddr is the reserved short address used for broadcast.
const BroadcastShortAddr ShortAddr = 0xffff

// ExtendedAddr is an IEEE 802.15.4 64-bit extended (EUI-64) device address.
type ExtendedAddr uint64
