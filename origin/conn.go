package origin

// connBuffer accumulates inbound bytes for one connection until they form a
// complete request.
type connBuffer struct {
	buf []byte
}

func (b *connBuffer) append(p []byte) {
	b.buf = append(b.buf, p...)
}

func (b *connBuffer) discard(n int) {
	switch {
	case n >= len(b.buf):
		b.buf = b.buf[:0]
	case n > 0:
		copy(b.buf, b.buf[n:])
		b.buf = b.buf[:len(b.buf)-n]
	}
}

func (b *connBuffer) reset() {
	b.buf = nil
}
