package layers

import (
	"encoding/binary"
	"fmt"

	"starEcho/utils/checksum"
)

const (
	IPProtocolICMPv4 uint8 = 1
	IPProtocolIGMP   uint8 = 2
	IPProtocolTCP    uint8 = 6
	IPProtocolUDP    uint8 = 17
	IPProtocolGRE    uint8 = 47
	IPProtocolESP    uint8 = 50
	IPProtocolICMPv6 uint8 = 58
	IPProtocolSCTP   uint8 = 132
)

// IPv4 is the header of an IP packet followed by its payload.
//
//	struct iphdr {
//		__u8	version:4,
//			ihl:4;
//		__u8	tos;
//		__be16	tot_len;
//		__be16	id;
//		__be16	frag_off;
//		__u8	ttl;
//		__u8	protocol;
//		__sum16	check;
//		__be32	saddr;
//		__be32	daddr;
//		/*The options start here. */
//	};
type IPv4 []byte

const (
	LengthIPv4Min = 20
	LengthIPv4Max = 60
)

// ParseIPv4 validates version, header length, total length and the header
// checksum. The returned view is clipped to the total length.
func ParseIPv4(b []byte) (IPv4, error) {
	if len(b) < LengthIPv4Min {
		return nil, ErrMalformedIpv4
	}
	p := IPv4(b)
	if p.GetVersion() != 4 {
		return nil, ErrMalformedIpv4
	}
	ihl := p.GetIHL()
	if ihl < LengthIPv4Min || ihl > len(b) {
		return nil, ErrMalformedIpv4
	}
	total := int(p.GetTotalLen())
	if total < ihl || total > len(b) {
		return nil, ErrMalformedIpv4
	}
	if !checksum.Valid(b[:ihl]) {
		return nil, ErrMalformedIpv4
	}
	return p[:total], nil
}

func (p IPv4) GetVersion() uint8 {
	return p[0] >> 4
}

// GetIHL returns the header length in bytes, options included.
func (p IPv4) GetIHL() int {
	return int(p[0]&0x0f) * 4
}

func (p IPv4) GetTOS() uint8 {
	return p[1]
}

func (p IPv4) GetTotalLen() uint16 {
	return binary.BigEndian.Uint16(p[2:4])
}

func (p IPv4) SetTotalLen(l uint16) {
	binary.BigEndian.PutUint16(p[2:4], l)
}

func (p IPv4) GetID() uint16 {
	return binary.BigEndian.Uint16(p[4:6])
}

func (p IPv4) GetFragOff() uint16 {
	return binary.BigEndian.Uint16(p[6:8]) & 0x1fff
}

func (p IPv4) IsFlagDontFrag() bool {
	return p[6]&64 == 64
}

func (p IPv4) IsFlagMoreFrag() bool {
	return p[6]&32 == 32
}

// IsFragment reports whether the packet is one piece of a fragmented datagram.
func (p IPv4) IsFragment() bool {
	return p.IsFlagMoreFrag() || p.GetFragOff() != 0
}

func (p IPv4) GetTTL() uint8 {
	return p[8]
}

func (p IPv4) SetTTL(ttl uint8) {
	p[8] = ttl
}

func (p IPv4) GetProtocol() uint8 {
	return p[9]
}

func (p IPv4) GetChecksum() uint16 {
	return binary.BigEndian.Uint16(p[10:12])
}

func (p IPv4) SetChecksum(c uint16) {
	binary.BigEndian.PutUint16(p[10:12], c)
}

func (p IPv4) GetSrcAddr() (ip IPv4Addr) {
	copy(ip[:], p[12:16])
	return ip
}

func (p IPv4) SetSrcAddr(ip IPv4Addr) {
	copy(p[12:16], ip[:])
}

func (p IPv4) GetDstAddr() (ip IPv4Addr) {
	copy(ip[:], p[16:20])
	return ip
}

func (p IPv4) SetDstAddr(ip IPv4Addr) {
	copy(p[16:20], ip[:])
}

// UpdateChecksum recomputes the header checksum over the header and options.
func (p IPv4) UpdateChecksum() {
	ihl := p.GetIHL()
	p.SetChecksum(0)
	p.SetChecksum(checksum.TCPIPChecksum(p[:ihl], 0))
}

func (p IPv4) Payload() []byte {
	return p[p.GetIHL():]
}

// Truncate shrinks the payload to n bytes and rewrites the total length so
// the header agrees with the returned view. n larger than the current
// payload leaves the packet untouched. The checksum is not updated.
func (p IPv4) Truncate(n int) IPv4 {
	ihl := p.GetIHL()
	if n < 0 {
		n = 0
	}
	if ihl+n >= len(p) {
		return p
	}
	p = p[:ihl+n]
	p.SetTotalLen(uint16(len(p)))
	return p
}

// Len returns the total length of the packet.
func (p IPv4) Len() int {
	return int(p.GetTotalLen())
}

func (p IPv4) String() string {
	return fmt.Sprintf("IPv4{src=%s dst=%s proto=%d len=%d ttl=%d id=%d csum=0x%04x}",
		p.GetSrcAddr(), p.GetDstAddr(), p.GetProtocol(), p.GetTotalLen(),
		p.GetTTL(), p.GetID(), p.GetChecksum())
}
