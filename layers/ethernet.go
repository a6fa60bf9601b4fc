package layers

import (
	"encoding/binary"
	"fmt"
)

type EthernetType uint16

const (
	EthernetTypeIPv4               EthernetType = 0x0800
	EthernetTypeARP                EthernetType = 0x0806
	EthernetTypeIPv6               EthernetType = 0x86DD
	EthernetTypeDot1Q              EthernetType = 0x8100
	EthernetTypeQinQ               EthernetType = 0x88a8
	EthernetTypeLinkLayerDiscovery EthernetType = 0x88cc
)

func (t EthernetType) String() string {
	switch t {
	case EthernetTypeIPv4:
		return "IPv4"
	case EthernetTypeARP:
		return "ARP"
	case EthernetTypeIPv6:
		return "IPv6"
	case EthernetTypeDot1Q:
		return "Dot1Q"
	case EthernetTypeQinQ:
		return "QinQ"
	case EthernetTypeLinkLayerDiscovery:
		return "LLDP"
	}
	return fmt.Sprintf("0x%04x", uint16(t))
}

// Ethernet is the layer for Ethernet II frame headers.
// [0:6] is DstMAC, [6:12] is SrcMAC
// [12:14] is EthernetType
type Ethernet []byte

const LengthEthernet = 14

// ParseEthernet checks that b can hold an Ethernet header.
func ParseEthernet(b []byte) (Ethernet, error) {
	if len(b) < LengthEthernet {
		return nil, ErrMalformedFrame
	}
	return Ethernet(b), nil
}

func (e Ethernet) GetDstAddress() (m MAC) {
	copy(m[:], e[0:6])
	return m
}

func (e Ethernet) SetDstAddress(m MAC) {
	copy(e[0:6], m[:])
}

func (e Ethernet) GetSrcAddress() (m MAC) {
	copy(m[:], e[6:12])
	return m
}

func (e Ethernet) SetSrcAddress(m MAC) {
	copy(e[6:12], m[:])
}

func (e Ethernet) GetEthernetType() EthernetType {
	return EthernetType(binary.BigEndian.Uint16(e[12:14]))
}

func (e Ethernet) SetEthernetType(t EthernetType) {
	binary.BigEndian.PutUint16(e[12:14], uint16(t))
}

func (e Ethernet) Payload() []byte {
	return e[LengthEthernet:]
}

func (e Ethernet) String() string {
	return fmt.Sprintf("Ethernet{dst=%s src=%s type=%s len=%d}",
		e.GetDstAddress(), e.GetSrcAddress(), e.GetEthernetType(), len(e))
}
