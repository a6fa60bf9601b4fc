// Package layerstest builds and decodes reference frames with gopacket, so
// tests check the hand written views against an independent implementation.
package layerstest

import (
	"net"

	"github.com/google/gopacket"
	glayers "github.com/google/gopacket/layers"

	"starEcho/layers"
)

// Endpoint is one side of a conversation.
type Endpoint struct {
	MAC layers.MAC
	IP  layers.IPv4Addr
}

var serializeOptions = gopacket.SerializeOptions{
	FixLengths:       true,
	ComputeChecksums: true,
}

func hw(m layers.MAC) net.HardwareAddr {
	return net.HardwareAddr(append([]byte(nil), m[:]...))
}

func ip(a layers.IPv4Addr) net.IP {
	return net.IPv4(a[0], a[1], a[2], a[3]).To4()
}

func serialize(l ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOptions, l...); err != nil {
		panic(err)
	}
	return append([]byte(nil), buf.Bytes()...)
}

// Ethernet returns a frame with an arbitrary EtherType and payload.
func Ethernet(src, dst layers.MAC, typ layers.EthernetType, payload []byte) []byte {
	eth := &glayers.Ethernet{
		SrcMAC:       hw(src),
		DstMAC:       hw(dst),
		EthernetType: glayers.EthernetType(typ),
	}
	return serialize(eth, gopacket.Payload(payload))
}

// ARP returns an Ethernet/IPv4 ARP packet. The Ethernet source is the sender
// hardware address.
func ARP(op uint16, sender, target Endpoint, ethDst layers.MAC) []byte {
	eth := &glayers.Ethernet{
		SrcMAC:       hw(sender.MAC),
		DstMAC:       hw(ethDst),
		EthernetType: glayers.EthernetTypeARP,
	}
	arp := &glayers.ARP{
		AddrType:          glayers.LinkTypeEthernet,
		Protocol:          glayers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         op,
		SourceHwAddress:   hw(sender.MAC),
		SourceProtAddress: ip(sender.IP),
		DstHwAddress:      hw(target.MAC),
		DstProtAddress:    ip(target.IP),
	}
	return serialize(eth, arp)
}

// ARPRequest asks, by broadcast, who has target.
func ARPRequest(sender Endpoint, target layers.IPv4Addr) []byte {
	return ARP(layers.ARPRequest, sender, Endpoint{IP: target}, layers.BroadcastMAC)
}

func ipv4(src, dst Endpoint, proto glayers.IPProtocol) (*glayers.Ethernet, *glayers.IPv4) {
	eth := &glayers.Ethernet{
		SrcMAC:       hw(src.MAC),
		DstMAC:       hw(dst.MAC),
		EthernetType: glayers.EthernetTypeIPv4,
	}
	ip4 := &glayers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       0x1c46,
		Protocol: proto,
		SrcIP:    ip(src.IP),
		DstIP:    ip(dst.IP),
	}
	return eth, ip4
}

// ICMPEcho returns an echo request from src to dst.
func ICMPEcho(src, dst Endpoint, id, seq uint16, payload []byte) []byte {
	eth, ip4 := ipv4(src, dst, glayers.IPProtocolICMPv4)
	icmp := &glayers.ICMPv4{
		TypeCode: glayers.CreateICMPv4TypeCode(glayers.ICMPv4TypeEchoRequest, 0),
		Id:       id,
		Seq:      seq,
	}
	return serialize(eth, ip4, icmp, gopacket.Payload(payload))
}

// ICMP returns an ICMP message of any type/code from src to dst.
func ICMP(src, dst Endpoint, typ, code uint8, payload []byte) []byte {
	eth, ip4 := ipv4(src, dst, glayers.IPProtocolICMPv4)
	icmp := &glayers.ICMPv4{
		TypeCode: glayers.CreateICMPv4TypeCode(typ, code),
	}
	return serialize(eth, ip4, icmp, gopacket.Payload(payload))
}

// UDP returns a datagram from src:sport to dst:dport. With zeroChecksum the
// UDP checksum field is cleared after serialization.
func UDP(src Endpoint, sport uint16, dst Endpoint, dport uint16, payload []byte, zeroChecksum bool) []byte {
	eth, ip4 := ipv4(src, dst, glayers.IPProtocolUDP)
	udp := &glayers.UDP{
		SrcPort: glayers.UDPPort(sport),
		DstPort: glayers.UDPPort(dport),
	}
	if err := udp.SetNetworkLayerForChecksum(ip4); err != nil {
		panic(err)
	}
	b := serialize(eth, ip4, udp, gopacket.Payload(payload))
	if zeroChecksum {
		off := layers.LengthEthernet + layers.LengthIPv4Min + 6
		b[off], b[off+1] = 0, 0
	}
	return b
}

// TCP returns a bare SYN, a protocol the responder only observes.
func TCP(src Endpoint, sport uint16, dst Endpoint, dport uint16) []byte {
	eth, ip4 := ipv4(src, dst, glayers.IPProtocolTCP)
	tcp := &glayers.TCP{
		SrcPort: glayers.TCPPort(sport),
		DstPort: glayers.TCPPort(dport),
		SYN:     true,
		Window:  1024,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip4); err != nil {
		panic(err)
	}
	return serialize(eth, ip4, tcp)
}

// Decode parses b with gopacket, starting at the Ethernet layer.
func Decode(b []byte) gopacket.Packet {
	return gopacket.NewPacket(b, glayers.LayerTypeEthernet, gopacket.Default)
}
