package capture

import (
	"log"
	"sync"

	"gocv.io/x/gocv"
)

// Preview is a Sink that keeps a JPEG copy of the newest frame before
// passing the frame on. The stream endpoint reads from it so the camera has
// a single reader.
type Preview struct {
	next Sink

	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewPreview creates a Preview forwarding to next. next may be nil, in which
// case frames are released after encoding.
func NewPreview(next Sink) *Preview {
	return &Preview{next: next}
}

// Feed implements Sink.
func (p *Preview) Feed(frame *Frame) {
	if frame == nil {
		return
	}

	if mat := frame.Mat(); mat != nil && !mat.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
		if err != nil {
			log.Printf("preview encode error: %v", err)
		} else {
			b := append([]byte(nil), buf.GetBytes()...)
			buf.Close()

			p.mu.Lock()
			p.jpeg = b
			p.seq++
			p.mu.Unlock()
		}
	}

	if p.next == nil {
		frame.Close()
		return
	}
	p.next.Feed(frame)
}

// Latest returns the newest encoded frame and its sequence number. The
// sequence is zero until the first frame arrives.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq
}
