package tone

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// BufferSink collects everything written to it in memory.
type BufferSink struct {
	mu  sync.Mutex
	buf *beep.Buffer
}

func NewBufferSink() *BufferSink {
	return &BufferSink{buf: beep.NewBuffer(Format)}
}

func (b *BufferSink) Write(chunk [][2]float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Append(&chunkStreamer{samples: chunk})
	return nil
}

// Len returns the number of samples collected.
func (b *BufferSink) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *BufferSink) Duration() time.Duration {
	return Format.SampleRate.D(b.Len())
}

// Reset discards the collected samples.
func (b *BufferSink) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = beep.NewBuffer(Format)
}

// Streamer returns a streamer over a snapshot of the collected samples.
func (b *BufferSink) Streamer() beep.StreamSeeker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Streamer(0, b.buf.Len())
}

// WriteWAV encodes the collected samples as a WAV file.
func (b *BufferSink) WriteWAV(w io.WriteSeeker) error {
	if err := wav.Encode(w, b.Streamer(), Format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// chunkStreamer streams a fixed slice of samples once.
type chunkStreamer struct {
	samples [][2]float64
}

func (c *chunkStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if len(c.samples) == 0 {
		return 0, false
	}
	n = copy(samples, c.samples)
	c.samples = c.samples[n:]
	return n, true
}

func (c *chunkStreamer) Err() error { return nil }
