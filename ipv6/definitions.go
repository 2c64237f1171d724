package ipv6

// ToS represents the Traffic Class field of the IPv6 header, reusing the
// same Differentiated Services / ECN layout as IPv4.
type ToS uint8

// DS returns the top 6 bits of the IPv6 Traffic Class holding the
// Differentiated Services field.
func (tos ToS) DS() uint8 { return uint8(tos) >> 2 }

// ECN is the Explicit Congestion Notification field.
func (tos ToS) ECN() uint8 { return uint8(tos & 0b11) }

const (
	sizeHeader = 40
)
