package namedsem

// frameHeaderSize is the length prefix in front of every frame.
const frameHeaderSize = 4

// frameBufSize keeps a typical snapshot frame under PIPE_BUF so that a single
// write to a pipe is not interleaved with other writers.
const frameBufSize = 4096

var frames = newFramePool(frameBufSize, 8)

// framePool hands out buffers sized for a header plus payload. Frames that
// fit frameBufSize come from a bounded free list; larger ones are allocated
// to size and never pooled.
type framePool struct {
	free chan []byte
	size int
}

func newFramePool(size, count int) *framePool {
	return &framePool{
		free: make(chan []byte, count),
		size: size,
	}
}

// getFrame returns a buffer of length frameHeaderSize+n.
func (p *framePool) getFrame(n int) []byte {
	need := frameHeaderSize + n
	if need > p.size {
		return make([]byte, need)
	}
	select {
	case buf := <-p.free:
		return buf[:need]
	default:
		return make([]byte, need, p.size)
	}
}

// putFrame recycles a buffer from getFrame. Oversized frames, and frames
// arriving when the free list is full, are dropped.
func (p *framePool) putFrame(frame []byte) {
	if cap(frame) != p.size {
		return
	}
	select {
	case p.free <- frame[:0]:
	default:
	}
}
