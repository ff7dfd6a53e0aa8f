package recorder

import (
	"errors"
	"io"
	"sync"
)

// readerChunkSize matches the granularity browsers hand MediaRecorder
// consumers; any small-ish size works, chunks are reassembled verbatim.
const readerChunkSize = 32 * 1024

// ReaderDevice adapts an io.Reader (a file, stdin, a pipe from an external
// capture tool) into a Device. It is exclusive: a second Acquire before
// Release fails.
type ReaderDevice struct {
	mu      sync.Mutex
	src     io.Reader
	held    bool
	drained chan struct{}
}

// NewReaderDevice creates a ReaderDevice over src. A nil src behaves like
// missing hardware: Acquire fails.
func NewReaderDevice(src io.Reader) *ReaderDevice {
	return &ReaderDevice{src: src}
}

func (d *ReaderDevice) Acquire(onChunk func([]byte)) (Capture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.src == nil {
		return nil, errors.New("no capture source")
	}
	if d.held {
		return nil, errors.New("capture source already in use")
	}
	d.held = true
	d.drained = make(chan struct{})

	c := &readerCapture{device: d, done: make(chan struct{})}
	go func() {
		defer close(d.drained)
		c.pump(d.src, onChunk)
	}()
	return c, nil
}

// Drained is closed once the current acquisition has read its source to
// completion. Callers recording from a finite source wait on it before
// stopping the session.
func (d *ReaderDevice) Drained() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drained
}

type readerCapture struct {
	device  *ReaderDevice
	done    chan struct{}
	release sync.Once
}

// pump delivers chunks until the source drains or the capture is released.
// It must not be waited on from Release: onChunk can block on the recorder
// lock held by the caller of Release.
func (c *readerCapture) pump(src io.Reader, onChunk func([]byte)) {
	buf := make([]byte, readerChunkSize)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if err != nil {
			return
		}
	}
}

func (c *readerCapture) Release() error {
	c.release.Do(func() {
		close(c.done)
		c.device.mu.Lock()
		c.device.held = false
		c.device.mu.Unlock()
	})
	return nil
}
