package sixlowpan

import (
	"github.com/jnet-io/jnet"
	"github.com/jnet-io/jnet/ieee802154"
)

// BuildInIEEE802154 parses the IPHC header at the start of mac's MAC payload
// and returns a Packet view over it, so the caller can read the compressed
// IPv6 header directly in place inside the 802.15.4 frame. mac's addressing
// header is not checked here; [ieee802154.Frame.Payload] panics if it is
// invalid.
func BuildInIEEE802154(mac ieee802154.Frame) (Packet, error) {
	return Parse(mac.Payload())
}

// NewInIEEE802154 is the encoding counterpart of [BuildInIEEE802154]: it
// writes a new IPHC-compressed header into mac's payload area.
func NewInIEEE802154(mac ieee802154.Frame, nextHeader jnet.IPProto, hopLimit uint8, src, dest jnet.Ipv6Addr, ctx Context) (Packet, error) {
	return New(mac.Payload(), nextHeader, hopLimit, src, dest, ctx)
}
