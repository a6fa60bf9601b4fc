package layers

import (
	"encoding/binary"
	"fmt"
)

const (
	ARPRequest uint16 = 0x0001
	ARPReply   uint16 = 0x0002
)

// Hardware type of the ARP header, see pcap-linktype(7).
const LinkTypeEthernet uint16 = 1

// ARP is the fixed part of an ARP packet (rfc826) followed by the variable
// length address fields.
//
//	[0:2] htype  [2:4] ptype  [4] hlen  [5] plen  [6:8] oper
type ARP []byte

const (
	LengthARP     = 8
	LengthARPIPv4 = LengthARP + 6 + 4 + 6 + 4
)

// ParseARP validates the fixed header and that b holds both address pairs.
// The returned view is clipped to the packet's natural length, so Ethernet
// padding is left out.
func ParseARP(b []byte) (ARP, error) {
	if len(b) < LengthARP {
		return nil, ErrMalformedArp
	}
	a := ARP(b)
	n := a.Len()
	if len(b) < n {
		return nil, ErrMalformedArp
	}
	return a[:n], nil
}

func (a ARP) GetLinkType() uint16 {
	return binary.BigEndian.Uint16(a[0:2])
}

func (a ARP) GetProtocolType() EthernetType {
	return EthernetType(binary.BigEndian.Uint16(a[2:4]))
}

func (a ARP) GetLinkAddressLength() uint8 {
	return a[4]
}

func (a ARP) GetProtocolAddressLength() uint8 {
	return a[5]
}

func (a ARP) GetOpCode() uint16 {
	return binary.BigEndian.Uint16(a[6:8])
}

func (a ARP) SetOpCode(op uint16) {
	binary.BigEndian.PutUint16(a[6:8], op)
}

// Len returns the natural length declared by the header.
func (a ARP) Len() int {
	return LengthARP + 2*(int(a.GetLinkAddressLength())+int(a.GetProtocolAddressLength()))
}

// Downcast returns the Ethernet/IPv4 view of the packet. ok is false for any
// other hardware or protocol combination.
func (a ARP) Downcast() (ARPv4, bool) {
	if a.GetLinkType() != LinkTypeEthernet ||
		a.GetProtocolType() != EthernetTypeIPv4 ||
		a.GetLinkAddressLength() != 6 ||
		a.GetProtocolAddressLength() != 4 ||
		len(a) < LengthARPIPv4 {
		return nil, false
	}
	return ARPv4(a[:LengthARPIPv4]), true
}

func (a ARP) String() string {
	return fmt.Sprintf("ARP{htype=%d ptype=%s hlen=%d plen=%d oper=%d}",
		a.GetLinkType(), a.GetProtocolType(), a.GetLinkAddressLength(),
		a.GetProtocolAddressLength(), a.GetOpCode())
}

// ARPv4 is an ARP packet for IPv4 over Ethernet, always LengthARPIPv4 long.
type ARPv4 []byte

func (a ARPv4) GetOpCode() uint16 {
	return binary.BigEndian.Uint16(a[6:8])
}

func (a ARPv4) SetOpCode(op uint16) {
	binary.BigEndian.PutUint16(a[6:8], op)
}

// GetSHA returns the sender hardware address.
func (a ARPv4) GetSHA() (m MAC) {
	copy(m[:], a[8:14])
	return m
}

func (a ARPv4) SetSHA(m MAC) {
	copy(a[8:14], m[:])
}

// GetSPA returns the sender protocol address.
func (a ARPv4) GetSPA() (ip IPv4Addr) {
	copy(ip[:], a[14:18])
	return ip
}

func (a ARPv4) SetSPA(ip IPv4Addr) {
	copy(a[14:18], ip[:])
}

// GetTHA returns the target hardware address.
func (a ARPv4) GetTHA() (m MAC) {
	copy(m[:], a[18:24])
	return m
}

func (a ARPv4) SetTHA(m MAC) {
	copy(a[18:24], m[:])
}

// GetTPA returns the target protocol address.
func (a ARPv4) GetTPA() (ip IPv4Addr) {
	copy(ip[:], a[24:28])
	return ip
}

func (a ARPv4) SetTPA(ip IPv4Addr) {
	copy(a[24:28], ip[:])
}

// IsProbe reports whether the packet is a duplicate address detection probe
// (rfc5227), which carries an unspecified sender address.
func (a ARPv4) IsProbe() bool {
	return a.GetSPA().IsUnspecified()
}

func (a ARPv4) Len() int {
	return len(a)
}

func (a ARPv4) String() string {
	return fmt.Sprintf("ARPv4{oper=%d sha=%s spa=%s tha=%s tpa=%s}",
		a.GetOpCode(), a.GetSHA(), a.GetSPA(), a.GetTHA(), a.GetTPA())
}
