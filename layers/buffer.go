package layers

// Buffer is the scratch region a single frame lives in while it is received,
// parsed, rewritten and transmitted. The backing array is allocated once and
// reused for every frame.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a Buffer able to hold size bytes.
func NewBuffer(size int) *Buffer {
	if size < LengthEthernet {
		size = LengthEthernet
	}
	return &Buffer{data: make([]byte, size), n: size}
}

// Reset restores the valid region to the full capacity and returns it, ready
// for a receive.
func (b *Buffer) Reset() []byte {
	b.n = len(b.data)
	return b.data
}

// Truncate shrinks the valid region to n bytes. It never grows the region
// and clamps negative values to zero.
func (b *Buffer) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < b.n {
		b.n = n
	}
}

// Bytes returns the valid region. Header views created from it write straight
// into the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

func (b *Buffer) Len() int { return b.n }

func (b *Buffer) Cap() int { return len(b.data) }
