package layers

import (
	"encoding/binary"
	"fmt"

	"starEcho/utils/checksum"
)

const (
	ICMPv4TypeEchoReply              = 0
	ICMPv4TypeDestinationUnreachable = 3
	ICMPv4TypeRedirect               = 5
	ICMPv4TypeEchoRequest            = 8
	ICMPv4TypeTimeExceeded           = 11
	ICMPv4TypeParameterProblem       = 12
	ICMPv4TypeTimestampRequest       = 13
	ICMPv4TypeTimestampReply         = 14
)

type ICMPv4 []byte

const LengthICMPv4 = 8

// ParseICMPv4 checks the header length and the checksum over the whole
// message.
func ParseICMPv4(b []byte) (ICMPv4, error) {
	if len(b) < LengthICMPv4 {
		return nil, ErrMalformedIcmp
	}
	if !checksum.Valid(b) {
		return nil, ErrMalformedIcmp
	}
	return ICMPv4(b), nil
}

func (i ICMPv4) GetType() uint8 {
	return i[0]
}

func (i ICMPv4) SetType(u uint8) {
	i[0] = u
}

func (i ICMPv4) GetCode() uint8 {
	return i[1]
}

func (i ICMPv4) SetCode(u uint8) {
	i[1] = u
}

func (i ICMPv4) GetChecksum() uint16 {
	return binary.BigEndian.Uint16(i[2:4])
}

func (i ICMPv4) SetChecksum(u uint16) {
	binary.BigEndian.PutUint16(i[2:4], u)
}

// GetID is only meaningful for echo messages.
func (i ICMPv4) GetID() uint16 {
	return binary.BigEndian.Uint16(i[4:6])
}

// GetSequence is only meaningful for echo messages.
func (i ICMPv4) GetSequence() uint16 {
	return binary.BigEndian.Uint16(i[6:8])
}

func (i ICMPv4) IsEchoRequest() bool {
	return i.GetType() == ICMPv4TypeEchoRequest && i.GetCode() == 0
}

// UpdateChecksum recomputes the checksum over header and data.
func (i ICMPv4) UpdateChecksum() {
	i.SetChecksum(0)
	i.SetChecksum(checksum.TCPIPChecksum(i, 0))
}

func (i ICMPv4) String() string {
	if i.GetType() == ICMPv4TypeEchoRequest || i.GetType() == ICMPv4TypeEchoReply {
		return fmt.Sprintf("ICMPv4{type=%d code=%d id=%d seq=%d len=%d}",
			i.GetType(), i.GetCode(), i.GetID(), i.GetSequence(), len(i))
	}
	return fmt.Sprintf("ICMPv4{type=%d code=%d len=%d}", i.GetType(), i.GetCode(), len(i))
}
