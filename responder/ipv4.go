package responder

import (
	"starEcho/layers"
)

func (d *Dispatcher) handleIPv4(buf *layers.Buffer, eth layers.Ethernet) (Verdict, error) {
	ip, err := layers.ParseIPv4(eth.Payload())
	if err != nil {
		return VerdictDropped, err
	}
	if d.tracing() {
		d.logger.Trace(ip.String())
	}

	src := ip.GetSrcAddr()
	if srcMAC := eth.GetSrcAddress(); !srcMAC.IsBroadcast() && !src.IsUnspecified() {
		d.learn(src, srcMAC)
	}

	// 分片不做重组
	if ip.IsFragment() {
		return VerdictObserved, nil
	}
	if d.strict && ip.GetDstAddr() != d.id.IP {
		return VerdictObserved, nil
	}

	switch ip.GetProtocol() {
	case layers.IPProtocolICMPv4:
		return d.handleICMPv4(buf, eth, ip)
	case layers.IPProtocolUDP:
		return d.handleUDP(buf, eth, ip)
	}
	return VerdictObserved, nil
}

func (d *Dispatcher) handleICMPv4(buf *layers.Buffer, eth layers.Ethernet, ip layers.IPv4) (Verdict, error) {
	icmp, err := layers.ParseICMPv4(ip.Payload())
	if err != nil {
		return VerdictDropped, err
	}
	if d.tracing() {
		d.logger.Trace(icmp.String())
	}
	if !icmp.IsEchoRequest() {
		return VerdictObserved, nil
	}

	src := ip.GetSrcAddr()
	dst, ok := d.cache.Lookup(src)
	if !ok {
		return d.noRoute(src), nil
	}

	icmp.SetType(layers.ICMPv4TypeEchoReply)
	icmp.UpdateChecksum()

	ip.SetSrcAddr(d.id.IP)
	ip.SetDstAddr(src)
	ip.UpdateChecksum()

	return d.reply(buf, eth, dst, ip.Len(), "icmp"), nil
}

func (d *Dispatcher) handleUDP(buf *layers.Buffer, eth layers.Ethernet, ip layers.IPv4) (Verdict, error) {
	udp, err := layers.ParseUDP(ip.Payload())
	if err != nil {
		return VerdictDropped, err
	}
	if d.tracing() {
		d.logger.Trace(udp.String())
	}

	src := ip.GetSrcAddr()
	dst, ok := d.cache.Lookup(src)
	if !ok {
		return d.noRoute(src), nil
	}

	sport, dport := udp.GetSrcPort(), udp.GetDstPort()
	udp.SetSrcPort(dport)
	udp.SetDstPort(sport)

	ip.SetSrcAddr(d.id.IP)
	ip.SetDstAddr(src)
	ip = ip.Truncate(len(udp))

	switch d.udpSum {
	case UDPChecksumRecompute:
		udp.UpdateChecksum(d.id.IP, src)
	default:
		udp.ZeroChecksum()
	}
	ip.UpdateChecksum()

	return d.reply(buf, eth, dst, ip.Len(), "udp"), nil
}
