//go:build tinygo

package internal

import (
	"errors"
	"net"
)

// InterfaceByName is unimplemented on TinyGo: its net package has no
// interface-by-name lookup, matching the teacher's own TinyGo build
// constraints for host networking glue.
func InterfaceByName(name string) (*net.Interface, error) {
	return nil, errors.New("net.InterfaceByName not implemented on TinyGo")
}
