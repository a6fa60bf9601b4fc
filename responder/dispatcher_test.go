package responder

import (
	"testing"

	"github.com/google/gopacket"
	glayers "github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starEcho/layers"
	"starEcho/layers/layerstest"
	"starEcho/neigh"
	"starEcho/utils/checksum"
)

var (
	local = layerstest.Endpoint{
		MAC: layers.MAC{0x20, 0x18, 0x03, 0x01, 0x00, 0x00},
		IP:  layers.IPv4Addr{10, 0, 0, 1},
	}
	peer = layerstest.Endpoint{
		MAC: layers.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		IP:  layers.IPv4Addr{10, 0, 0, 5},
	}
)

func newDispatcher(cache *neigh.Cache) *Dispatcher {
	return New(Config{Identity: Identity{MAC: local.MAC, IP: local.IP}}, cache)
}

func load(frame []byte) *layers.Buffer {
	buf := layers.NewBuffer(1514)
	n := copy(buf.Reset(), frame)
	buf.Truncate(n)
	return buf
}

// fullCache returns a cache that rejects every new key.
func fullCache(t *testing.T) *neigh.Cache {
	c := neigh.New(2, neigh.PolicyReject)
	require.NoError(t, c.Insert(layers.IPv4Addr{192, 168, 0, 1}, layers.MAC{2, 0, 0, 0, 0, 1}))
	require.NoError(t, c.Insert(layers.IPv4Addr{192, 168, 0, 2}, layers.MAC{2, 0, 0, 0, 0, 2}))
	return c
}

func decode(t *testing.T, b []byte) gopacket.Packet {
	p := layerstest.Decode(b)
	require.Nil(t, p.ErrorLayer(), "decode error")
	return p
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "replied", VerdictReplied.String())
	assert.Equal(t, "no-route", VerdictNoRoute.String())
	assert.Equal(t, "Verdict(42)", Verdict(42).String())
}

func TestParseUDPChecksum(t *testing.T) {
	c, err := ParseUDPChecksum("recompute")
	require.NoError(t, err)
	assert.Equal(t, UDPChecksumRecompute, c)

	c, err = ParseUDPChecksum("")
	require.NoError(t, err)
	assert.Equal(t, UDPChecksumZero, c)

	_, err = ParseUDPChecksum("maybe")
	assert.Error(t, err)
}

func TestHandle_ShortFrame(t *testing.T) {
	d := newDispatcher(nil)
	v, err := d.Handle(load([]byte{1, 2, 3}))
	assert.Equal(t, VerdictDropped, v)
	assert.Equal(t, layers.ErrMalformedFrame, err)
}

func TestHandle_OtherEtherTypes(t *testing.T) {
	for _, typ := range []layers.EthernetType{layers.EthernetTypeIPv6, layers.EthernetTypeLinkLayerDiscovery, 0x88b5} {
		d := newDispatcher(nil)
		frame := layerstest.Ethernet(peer.MAC, local.MAC, typ, make([]byte, 46))
		buf := load(frame)

		v, err := d.Handle(buf)
		require.NoError(t, err)
		assert.Equal(t, VerdictIgnored, v, typ.String())
		assert.Equal(t, 0, d.Cache().Len())
		assert.Equal(t, frame, buf.Bytes())
	}
}

func TestHandle_ARPRequestForUs(t *testing.T) {
	d := newDispatcher(nil)
	buf := load(layerstest.ARPRequest(peer, local.IP))

	v, err := d.Handle(buf)
	require.NoError(t, err)
	require.Equal(t, VerdictReplied, v)
	assert.Equal(t, layers.LengthEthernet+layers.LengthARPIPv4, buf.Len())

	p := decode(t, buf.Bytes())
	eth := p.Layer(glayers.LayerTypeEthernet).(*glayers.Ethernet)
	assert.Equal(t, peer.MAC[:], []byte(eth.DstMAC))
	assert.Equal(t, local.MAC[:], []byte(eth.SrcMAC))
	assert.Equal(t, glayers.EthernetTypeARP, eth.EthernetType)

	arp := p.Layer(glayers.LayerTypeARP).(*glayers.ARP)
	assert.Equal(t, uint16(glayers.ARPReply), arp.Operation)
	assert.Equal(t, local.MAC[:], arp.SourceHwAddress)
	assert.Equal(t, local.IP[:], arp.SourceProtAddress)
	assert.Equal(t, peer.MAC[:], arp.DstHwAddress)
	assert.Equal(t, peer.IP[:], arp.DstProtAddress)

	mac, ok := d.Cache().Lookup(peer.IP)
	assert.True(t, ok)
	assert.Equal(t, peer.MAC, mac)
	// ARP replies do not blink
	assert.False(t, d.Activity())
}

func TestHandle_ARPObserved(t *testing.T) {
	d := newDispatcher(nil)

	// request for someone else is learned but not answered
	v, err := d.Handle(load(layerstest.ARPRequest(peer, layers.IPv4Addr{10, 0, 0, 9})))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)
	_, ok := d.Cache().Lookup(peer.IP)
	assert.True(t, ok)

	// a reply addressed to us is learned but not answered
	other := layerstest.Endpoint{MAC: layers.MAC{2, 2, 2, 2, 2, 2}, IP: layers.IPv4Addr{10, 0, 0, 7}}
	v, err = d.Handle(load(layerstest.ARP(layers.ARPReply, other, local, local.MAC)))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)
	mac, ok := d.Cache().Lookup(other.IP)
	assert.True(t, ok)
	assert.Equal(t, other.MAC, mac)
}

func TestHandle_ARPProbeNotCached(t *testing.T) {
	d := newDispatcher(nil)
	probe := layerstest.Endpoint{MAC: peer.MAC}

	v, err := d.Handle(load(layerstest.ARPRequest(probe, local.IP)))
	require.NoError(t, err)
	// still answered, to the unspecified address
	assert.Equal(t, VerdictReplied, v)
	assert.Equal(t, 0, d.Cache().Len())
}

func TestHandle_BroadcastSourceNeverCached(t *testing.T) {
	d := newDispatcher(nil)
	bcast := layerstest.Endpoint{MAC: layers.BroadcastMAC, IP: peer.IP}

	_, err := d.Handle(load(layerstest.ARPRequest(bcast, local.IP)))
	require.NoError(t, err)
	_, err = d.Handle(load(layerstest.ICMPEcho(bcast, local, 1, 1, nil)))
	require.NoError(t, err)
	_, err = d.Handle(load(layerstest.UDP(bcast, 1234, local, 80, []byte("ping"), true)))
	require.NoError(t, err)

	assert.Equal(t, 0, d.Cache().Len())
}

func TestHandle_ARPMalformed(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.ARPRequest(peer, local.IP)

	v, err := d.Handle(load(frame[:layers.LengthEthernet+6]))
	assert.Equal(t, VerdictDropped, v)
	assert.Equal(t, layers.ErrMalformedArp, err)

	// address lengths claiming more than the frame holds
	bad := append([]byte(nil), frame...)
	bad[layers.LengthEthernet+4] = 200
	v, err = d.Handle(load(bad))
	assert.Equal(t, VerdictDropped, v)
	assert.Equal(t, layers.ErrMalformedArp, err)
}

func TestHandle_ARPNotIPv4(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.ARPRequest(peer, local.IP)
	frame[layers.LengthEthernet+2] = 0x86
	frame[layers.LengthEthernet+3] = 0xdd

	v, err := d.Handle(load(frame))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)
	assert.Equal(t, 0, d.Cache().Len())
}

func TestHandle_ICMPEcho(t *testing.T) {
	d := newDispatcher(nil)
	payload := []byte("abcdefgh")
	buf := load(layerstest.ICMPEcho(peer, local, 0x1234, 7, payload))

	v, err := d.Handle(buf)
	require.NoError(t, err)
	require.Equal(t, VerdictReplied, v)
	assert.Equal(t, layers.LengthEthernet+layers.LengthIPv4Min+layers.LengthICMPv4+len(payload), buf.Len())
	assert.True(t, d.Activity())

	out := buf.Bytes()
	ipHdr := out[layers.LengthEthernet : layers.LengthEthernet+layers.LengthIPv4Min]
	assert.True(t, checksum.Valid(ipHdr))
	assert.True(t, checksum.Valid(out[layers.LengthEthernet+layers.LengthIPv4Min:]))

	p := decode(t, out)
	eth := p.Layer(glayers.LayerTypeEthernet).(*glayers.Ethernet)
	assert.Equal(t, peer.MAC[:], []byte(eth.DstMAC))
	assert.Equal(t, local.MAC[:], []byte(eth.SrcMAC))

	ip := p.Layer(glayers.LayerTypeIPv4).(*glayers.IPv4)
	assert.Equal(t, local.IP[:], []byte(ip.SrcIP))
	assert.Equal(t, peer.IP[:], []byte(ip.DstIP))
	assert.Equal(t, uint8(64), ip.TTL)

	icmp := p.Layer(glayers.LayerTypeICMPv4).(*glayers.ICMPv4)
	assert.Equal(t, uint8(glayers.ICMPv4TypeEchoReply), icmp.TypeCode.Type())
	assert.Equal(t, uint16(0x1234), icmp.Id)
	assert.Equal(t, uint16(7), icmp.Seq)
	assert.Equal(t, payload, icmp.Payload)

	// second reply flips the indicator back
	_, err = d.Handle(load(layerstest.ICMPEcho(peer, local, 0x1234, 8, payload)))
	require.NoError(t, err)
	assert.False(t, d.Activity())
}

func TestHandle_ICMPEchoNoRoute(t *testing.T) {
	d := newDispatcher(fullCache(t))
	frame := layerstest.ICMPEcho(peer, local, 1, 1, nil)
	buf := load(frame)

	v, err := d.Handle(buf)
	require.NoError(t, err)
	assert.Equal(t, VerdictNoRoute, v)
	assert.False(t, d.Activity())
}

func TestHandle_ICMPOther(t *testing.T) {
	d := newDispatcher(nil)
	v, err := d.Handle(load(layerstest.ICMP(peer, local, glayers.ICMPv4TypeEchoReply, 0, []byte("xx"))))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)

	v, err = d.Handle(load(layerstest.ICMP(peer, local, glayers.ICMPv4TypeEchoRequest, 1, nil)))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)
}

func TestHandle_ICMPBadChecksum(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.ICMPEcho(peer, local, 1, 1, []byte("abcd"))
	frame[layers.LengthEthernet+layers.LengthIPv4Min+2] ^= 0xff

	v, err := d.Handle(load(frame))
	assert.Equal(t, VerdictDropped, v)
	assert.Equal(t, layers.ErrMalformedIcmp, err)
	// the IPv4 layer was fine and already cached the peer
	_, ok := d.Cache().Lookup(peer.IP)
	assert.True(t, ok)
}

func TestHandle_IPv4Malformed(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.ICMPEcho(peer, local, 1, 1, nil)
	frame[layers.LengthEthernet+10] ^= 0xff

	v, err := d.Handle(load(frame))
	assert.Equal(t, VerdictDropped, v)
	assert.Equal(t, layers.ErrMalformedIpv4, err)
	assert.Equal(t, 0, d.Cache().Len())
}

func TestHandle_UDPEcho(t *testing.T) {
	cache := neigh.New(neigh.DefaultCapacity, neigh.PolicyReject)
	require.NoError(t, cache.Insert(peer.IP, peer.MAC))
	d := newDispatcher(cache)

	buf := load(layerstest.UDP(peer, 1234, local, 80, []byte("ping"), true))
	v, err := d.Handle(buf)
	require.NoError(t, err)
	require.Equal(t, VerdictReplied, v)
	assert.True(t, d.Activity())

	out := buf.Bytes()
	assert.Len(t, out, layers.LengthEthernet+layers.LengthIPv4Min+layers.LengthUDP+4)
	assert.True(t, checksum.Valid(out[layers.LengthEthernet:layers.LengthEthernet+layers.LengthIPv4Min]))

	p := decode(t, out)
	eth := p.Layer(glayers.LayerTypeEthernet).(*glayers.Ethernet)
	assert.Equal(t, peer.MAC[:], []byte(eth.DstMAC))
	assert.Equal(t, local.MAC[:], []byte(eth.SrcMAC))

	ip := p.Layer(glayers.LayerTypeIPv4).(*glayers.IPv4)
	assert.Equal(t, uint16(layers.LengthIPv4Min+layers.LengthUDP+4), ip.Length)
	assert.Equal(t, local.IP[:], []byte(ip.SrcIP))
	assert.Equal(t, peer.IP[:], []byte(ip.DstIP))

	udp := p.Layer(glayers.LayerTypeUDP).(*glayers.UDP)
	assert.Equal(t, glayers.UDPPort(80), udp.SrcPort)
	assert.Equal(t, glayers.UDPPort(1234), udp.DstPort)
	assert.Equal(t, uint16(0), udp.Checksum)
	assert.Equal(t, []byte("ping"), udp.Payload)
}

func TestHandle_UDPRecomputeChecksum(t *testing.T) {
	d := New(Config{
		Identity:    Identity{MAC: local.MAC, IP: local.IP},
		UDPChecksum: UDPChecksumRecompute,
	}, nil)

	buf := load(layerstest.UDP(peer, 5000, local, 7, []byte("hello"), false))
	v, err := d.Handle(buf)
	require.NoError(t, err)
	require.Equal(t, VerdictReplied, v)

	udp := buf.Bytes()[layers.LengthEthernet+layers.LengthIPv4Min:]
	require.Len(t, udp, layers.LengthUDP+5)
	assert.NotEqual(t, byte(0), udp[6]|udp[7])
	pseudo := checksum.PseudoHeaderIPv4(local.IP, peer.IP, layers.IPProtocolUDP, uint16(len(udp)))
	assert.Equal(t, uint16(0), checksum.TCPIPChecksum(udp, pseudo))
}

func TestHandle_UDPNoRoute(t *testing.T) {
	d := newDispatcher(fullCache(t))
	frame := layerstest.UDP(peer, 1234, local, 80, []byte("ping"), true)
	buf := load(frame)

	v, err := d.Handle(buf)
	require.NoError(t, err)
	assert.Equal(t, VerdictNoRoute, v)
	assert.Equal(t, frame, buf.Bytes())
}

func TestHandle_UDPMalformed(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.UDP(peer, 1234, local, 80, []byte("ping"), true)
	// length field larger than the IP payload
	off := layers.LengthEthernet + layers.LengthIPv4Min + 4
	frame[off], frame[off+1] = 0x01, 0x00

	v, err := d.Handle(load(frame))
	assert.Equal(t, VerdictDropped, v)
	assert.Equal(t, layers.ErrMalformedUdp, err)
}

func TestHandle_UDPShorterThanIP(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.UDP(peer, 1234, local, 80, []byte("pingpong"), true)
	// shrink the UDP length so trailing bytes belong to no layer
	off := layers.LengthEthernet + layers.LengthIPv4Min + 4
	frame[off], frame[off+1] = 0x00, byte(layers.LengthUDP+4)

	buf := load(frame)
	v, err := d.Handle(buf)
	require.NoError(t, err)
	require.Equal(t, VerdictReplied, v)
	assert.Equal(t, layers.LengthEthernet+layers.LengthIPv4Min+layers.LengthUDP+4, buf.Len())

	ip, err := layers.ParseIPv4(buf.Bytes()[layers.LengthEthernet:])
	require.NoError(t, err)
	assert.Equal(t, layers.LengthIPv4Min+layers.LengthUDP+4, ip.Len())
}

func TestHandle_StrictDestination(t *testing.T) {
	d := New(Config{
		Identity:          Identity{MAC: local.MAC, IP: local.IP},
		StrictDestination: true,
	}, nil)
	elsewhere := layerstest.Endpoint{MAC: local.MAC, IP: layers.IPv4Addr{10, 0, 0, 99}}

	v, err := d.Handle(load(layerstest.ICMPEcho(peer, elsewhere, 1, 1, nil)))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)

	v, err = d.Handle(load(layerstest.UDP(peer, 1, elsewhere, 2, nil, true)))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)

	v, err = d.Handle(load(layerstest.ICMPEcho(peer, local, 1, 1, nil)))
	require.NoError(t, err)
	assert.Equal(t, VerdictReplied, v)
}

func TestHandle_AnyDestinationByDefault(t *testing.T) {
	d := newDispatcher(nil)
	elsewhere := layerstest.Endpoint{MAC: local.MAC, IP: layers.IPv4Addr{10, 0, 0, 99}}

	v, err := d.Handle(load(layerstest.ICMPEcho(peer, elsewhere, 1, 1, nil)))
	require.NoError(t, err)
	assert.Equal(t, VerdictReplied, v)
}

func TestHandle_Fragment(t *testing.T) {
	d := newDispatcher(nil)
	frame := layerstest.ICMPEcho(peer, local, 1, 1, nil)
	ip := layers.IPv4(frame[layers.LengthEthernet:])
	ip[6] |= 0x20 // MF
	ip.UpdateChecksum()

	v, err := d.Handle(load(frame))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)
	// still learned from
	assert.Equal(t, 1, d.Cache().Len())
}

func TestHandle_OtherProtocol(t *testing.T) {
	d := newDispatcher(nil)
	v, err := d.Handle(load(layerstest.TCP(peer, 40000, local, 80)))
	require.NoError(t, err)
	assert.Equal(t, VerdictObserved, v)
	assert.Equal(t, 1, d.Cache().Len())
}

func TestHandle_TraceDoesNotChangeOutcome(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.TraceLevel)

	quiet := newDispatcher(nil)
	loud := New(Config{
		Identity: Identity{MAC: local.MAC, IP: local.IP},
		Logger:   logger.WithField("module", "responder"),
	}, nil)

	frames := [][]byte{
		layerstest.ARPRequest(peer, local.IP),
		layerstest.ICMPEcho(peer, local, 9, 9, []byte("x")),
		layerstest.UDP(peer, 1, local, 2, []byte("y"), true),
		{0, 1, 2},
	}
	for _, f := range frames {
		a, b := load(f), load(f)
		va, ea := quiet.Handle(a)
		vb, eb := loud.Handle(b)
		assert.Equal(t, va, vb)
		assert.Equal(t, ea, eb)
		assert.Equal(t, a.Bytes(), b.Bytes())
	}
	assert.NotEmpty(t, hook.AllEntries())
}
