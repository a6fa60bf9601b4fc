package responder

import (
	"starEcho/layers"
	"starEcho/pkg/metrics"
)

func (d *Dispatcher) handleARP(buf *layers.Buffer, eth layers.Ethernet) (Verdict, error) {
	a, err := layers.ParseARP(eth.Payload())
	if err != nil {
		return VerdictDropped, err
	}
	arp, ok := a.Downcast()
	if !ok {
		if d.tracing() {
			d.logger.Trace(a.String())
		}
		return VerdictObserved, nil
	}
	if d.tracing() {
		d.logger.Trace(arp.String())
	}

	sha, spa := arp.GetSHA(), arp.GetSPA()
	if !arp.IsProbe() && !sha.IsBroadcast() && !eth.GetSrcAddress().IsBroadcast() {
		d.learn(spa, sha)
	}

	if arp.GetOpCode() != layers.ARPRequest || arp.GetTPA() != d.id.IP {
		return VerdictObserved, nil
	}

	// 原地改写为应答
	arp.SetOpCode(layers.ARPReply)
	arp.SetSHA(d.id.MAC)
	arp.SetSPA(d.id.IP)
	arp.SetTHA(sha)
	arp.SetTPA(spa)

	eth.SetDstAddress(sha)
	eth.SetSrcAddress(d.id.MAC)
	buf.Truncate(layers.LengthEthernet + layers.LengthARPIPv4)

	metrics.Replies.WithLabelValues("arp").Inc()
	if d.tracing() {
		d.logger.Tracef("reply arp: %s", arp)
	}
	return VerdictReplied, nil
}
