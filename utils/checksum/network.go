package checksum

// Calculate the TCP/IP checksum defined in rfc1071.  The passed-in csum is any
// initial checksum data that's already been computed.
// IPv4 header, ICMPv4, UDP can use it.
func TCPIPChecksum(data []byte, baseCSum uint32) uint16 {
	return Fold(Sum(data, baseCSum))
}

// Sum adds data to the running (unfolded) one's complement sum.
func Sum(data []byte, baseCSum uint32) uint32 {
	// 避免重复获取长度
	length := len(data)
	// 计算偶数部分
	for i := 0; i < length>>1; i++ {
		baseCSum += uint32(data[i*2])<<8 + uint32(data[i*2+1])
	}
	// 如果是奇数就把最后一位加上，低位补零
	if length&0x01 == 0x01 {
		baseCSum += uint32(data[length-1]) << 8
	}
	return baseCSum
}

// Fold reduces a running sum to 16 bits and returns its complement.
func Fold(sum uint32) uint16 {
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}

// Valid reports whether data, checksum field included, sums to zero.
func Valid(data []byte) bool {
	return TCPIPChecksum(data, 0) == 0
}

// PseudoHeaderIPv4 returns the partial sum of the IPv4 pseudo header used by
// UDP and TCP.
func PseudoHeaderIPv4(src, dst [4]byte, protocol uint8, length uint16) uint32 {
	var sum uint32
	sum += uint32(src[0])<<8 | uint32(src[1])
	sum += uint32(src[2])<<8 | uint32(src[3])
	sum += uint32(dst[0])<<8 | uint32(dst[1])
	sum += uint32(dst[2])<<8 | uint32(dst[3])
	sum += uint32(protocol)
	sum += uint32(length)
	return sum
}
