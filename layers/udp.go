package layers

import (
	"encoding/binary"
	"fmt"

	"starEcho/utils/checksum"
)

// UDP is a datagram header followed by its payload.
//
//	struct udphdr {
//		__be16	source;
//		__be16	dest;
//		__be16	len;
//		__sum16	check;
//	};
type UDP []byte

const LengthUDP = 8

// ParseUDP validates the length field against b and clips the view to it.
func ParseUDP(b []byte) (UDP, error) {
	if len(b) < LengthUDP {
		return nil, ErrMalformedUdp
	}
	u := UDP(b)
	l := int(u.GetLen())
	if l < LengthUDP || l > len(b) {
		return nil, ErrMalformedUdp
	}
	return u[:l], nil
}

func (u UDP) GetSrcPort() uint16 {
	return binary.BigEndian.Uint16(u[0:2])
}

func (u UDP) SetSrcPort(p uint16) {
	binary.BigEndian.PutUint16(u[0:2], p)
}

func (u UDP) GetDstPort() uint16 {
	return binary.BigEndian.Uint16(u[2:4])
}

func (u UDP) SetDstPort(p uint16) {
	binary.BigEndian.PutUint16(u[2:4], p)
}

func (u UDP) GetLen() uint16 {
	return binary.BigEndian.Uint16(u[4:6])
}

func (u UDP) GetChecksum() uint16 {
	return binary.BigEndian.Uint16(u[6:8])
}

func (u UDP) SetChecksum(c uint16) {
	binary.BigEndian.PutUint16(u[6:8], c)
}

// ZeroChecksum opts the datagram out of checksum validation (rfc768).
func (u UDP) ZeroChecksum() {
	u.SetChecksum(0)
}

// UpdateChecksum recomputes the checksum including the IPv4 pseudo header.
// A computed zero is sent as 0xffff, zero meaning "no checksum".
func (u UDP) UpdateChecksum(src, dst IPv4Addr) {
	u.SetChecksum(0)
	sum := checksum.PseudoHeaderIPv4(src, dst, IPProtocolUDP, uint16(len(u)))
	c := checksum.TCPIPChecksum(u, sum)
	if c == 0 {
		c = 0xffff
	}
	u.SetChecksum(c)
}

func (u UDP) Payload() []byte {
	return u[LengthUDP:]
}

func (u UDP) String() string {
	return fmt.Sprintf("UDP{sport=%d dport=%d len=%d csum=0x%04x}",
		u.GetSrcPort(), u.GetDstPort(), u.GetLen(), u.GetChecksum())
}
