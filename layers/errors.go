package layers

import "github.com/pkg/errors"

// Parse failures. All of them are recoverable: the frame is dropped and
// processing continues with the next one.
var (
	ErrMalformedFrame = errors.New("malformed ethernet frame")
	ErrMalformedArp   = errors.New("malformed arp packet")
	ErrMalformedIpv4  = errors.New("malformed ipv4 packet")
	ErrMalformedIcmp  = errors.New("malformed icmpv4 packet")
	ErrMalformedUdp   = errors.New("malformed udp packet")
)
