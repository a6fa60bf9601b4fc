package layers

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// MAC is a 48 bit hardware address stored by value, so copies never alias
// the frame buffer.
type MAC [6]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// ParseMAC parses a 6 byte hardware address in any form net.ParseMAC accepts.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, errors.Wrapf(err, "parse mac %q failed", s)
	}
	if len(hw) != len(m) {
		return m, fmt.Errorf("invalid mac length %d: %s", len(hw), s)
	}
	copy(m[:], hw)
	return m, nil
}

// IPv4Addr is an IPv4 address in network order.
type IPv4Addr [4]byte

// IsUnspecified reports whether a is 0.0.0.0, the sender address of an ARP probe.
func (a IPv4Addr) IsUnspecified() bool {
	return a == IPv4Addr{}
}

func (a IPv4Addr) String() string {
	return net.IP(a[:]).String()
}

// ParseIPv4Addr parses a dotted quad.
func ParseIPv4Addr(s string) (IPv4Addr, error) {
	var a IPv4Addr
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return a, fmt.Errorf("parse ipv4 address failed: %s", s)
	}
	copy(a[:], ip)
	return a, nil
}
