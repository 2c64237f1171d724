//go:build !tinygo

package internal

import "net"

// InterfaceByName resolves iface to a [net.Interface], used to find the
// IPv6 zone (scope id) for link-local addresses the -I flag names.
func InterfaceByName(iface string) (*net.Interface, error) {
	return net.InterfaceByName(iface)
}
