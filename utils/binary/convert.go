package binary

func Swap16(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}

// Htons16 converts a host order uint16 into network order, as socket(2) and
// sockaddr_ll expect for the protocol field.
func Htons16(i uint16) uint16 {
	if IsBigEndian() {
		return i
	}
	return Swap16(i)
}
