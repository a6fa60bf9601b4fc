// Package responder answers ARP requests, ICMP echo requests and UDP
// datagrams by rewriting the received frame in place.
package responder

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"starEcho/layers"
	"starEcho/neigh"
	"starEcho/pkg/metrics"
)

// Verdict is the outcome of handling one frame.
type Verdict int

const (
	// VerdictIgnored means the EtherType is not handled at all.
	VerdictIgnored Verdict = iota
	// VerdictObserved means the frame was parsed, maybe cached from, but
	// needs no answer.
	VerdictObserved
	// VerdictReplied means the buffer now holds a reply ready to transmit.
	VerdictReplied
	// VerdictDropped means a layer failed to parse.
	VerdictDropped
	// VerdictNoRoute means a reply was due but the peer is not cached.
	VerdictNoRoute
)

func (v Verdict) String() string {
	switch v {
	case VerdictIgnored:
		return "ignored"
	case VerdictObserved:
		return "observed"
	case VerdictReplied:
		return "replied"
	case VerdictDropped:
		return "dropped"
	case VerdictNoRoute:
		return "no-route"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Identity is the hardware and protocol address the responder answers for.
type Identity struct {
	MAC layers.MAC
	IP  layers.IPv4Addr
}

// UDPChecksum selects how echoed datagrams carry their checksum.
type UDPChecksum int

const (
	// UDPChecksumZero clears the field, opting out of validation.
	UDPChecksumZero UDPChecksum = iota
	// UDPChecksumRecompute fills in a checksum over the pseudo header.
	UDPChecksumRecompute
)

func (c UDPChecksum) String() string {
	if c == UDPChecksumRecompute {
		return "recompute"
	}
	return "zero"
}

func ParseUDPChecksum(s string) (UDPChecksum, error) {
	switch strings.ToLower(s) {
	case "", "zero":
		return UDPChecksumZero, nil
	case "recompute":
		return UDPChecksumRecompute, nil
	}
	return UDPChecksumZero, fmt.Errorf("invalid udp checksum mode: %s", s)
}

type Config struct {
	Identity    Identity
	UDPChecksum UDPChecksum
	// StrictDestination only answers ICMP and UDP addressed to Identity.IP.
	StrictDestination bool
	// Logger receives trace and drop lines. Nil discards them.
	Logger *log.Entry
}

// Dispatcher classifies a received frame, feeds the neighbour cache and
// turns requests into replies. It is owned by the drain worker and is not
// safe for concurrent use.
type Dispatcher struct {
	id       Identity
	udpSum   UDPChecksum
	strict   bool
	cache    *neigh.Cache
	logger   *log.Entry
	activity bool
}

func New(cfg Config, cache *neigh.Cache) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		logger = log.NewEntry(l)
	}
	if cache == nil {
		cache = neigh.New(neigh.DefaultCapacity, neigh.PolicyReject)
	}
	return &Dispatcher{
		id:     cfg.Identity,
		udpSum: cfg.UDPChecksum,
		strict: cfg.StrictDestination,
		cache:  cache,
		logger: logger,
	}
}

func (d *Dispatcher) Identity() Identity { return d.id }

func (d *Dispatcher) Cache() *neigh.Cache { return d.cache }

// Activity flips on every ICMP or UDP reply, like a status LED.
func (d *Dispatcher) Activity() bool { return d.activity }

func (d *Dispatcher) tracing() bool {
	return d.logger.Logger.IsLevelEnabled(log.TraceLevel)
}

// Handle processes the frame held in buf. On VerdictReplied buf.Bytes() is
// the frame to transmit. A non-nil error is always one of the layers parse
// errors and comes with VerdictDropped.
func (d *Dispatcher) Handle(buf *layers.Buffer) (Verdict, error) {
	eth, err := layers.ParseEthernet(buf.Bytes())
	if err != nil {
		return d.drop(err)
	}
	if d.tracing() {
		d.logger.Trace(eth.String())
	}

	var v Verdict
	switch eth.GetEthernetType() {
	case layers.EthernetTypeARP:
		v, err = d.handleARP(buf, eth)
	case layers.EthernetTypeIPv4:
		v, err = d.handleIPv4(buf, eth)
	default:
		return VerdictIgnored, nil
	}
	if err != nil {
		return d.drop(err)
	}
	return v, nil
}

func (d *Dispatcher) drop(err error) (Verdict, error) {
	metrics.FramesDropped.WithLabelValues(metrics.ReasonMalformed).Inc()
	d.logger.Debugf("drop frame: %v", err)
	return VerdictDropped, err
}

// learn records ip → mac. Failures only cost a future reply.
func (d *Dispatcher) learn(ip layers.IPv4Addr, mac layers.MAC) {
	if err := d.cache.Insert(ip, mac); err != nil {
		metrics.CacheInsertFailures.Inc()
		d.logger.Debugf("cache %s -> %s skipped: %v", ip, mac, err)
		return
	}
	metrics.CacheEntries.Set(float64(d.cache.Len()))
}

// reply finishes an IPv4 answer: link addresses and frame length.
func (d *Dispatcher) reply(buf *layers.Buffer, eth layers.Ethernet, dst layers.MAC, n int, protocol string) Verdict {
	eth.SetDstAddress(dst)
	eth.SetSrcAddress(d.id.MAC)
	buf.Truncate(layers.LengthEthernet + n)
	d.activity = !d.activity
	metrics.Replies.WithLabelValues(protocol).Inc()
	if d.tracing() {
		d.logger.Tracef("reply %s: %s", protocol, layers.Ethernet(buf.Bytes()))
	}
	return VerdictReplied
}

func (d *Dispatcher) noRoute(ip layers.IPv4Addr) Verdict {
	metrics.FramesDropped.WithLabelValues(metrics.ReasonNoRoute).Inc()
	d.logger.Debugf("no cached address for %s", ip)
	return VerdictNoRoute
}
