package tone

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2/speaker"
)

const speakerQueue = 4

// Speaker is a Sink playing on the device's audio output. Write blocks while
// the queue is full, so it paces the tone worker to real time.
type Speaker struct {
	chunks chan [][2]float64
	cur    [][2]float64
}

// OpenSpeaker starts the audio device with buffer worth of latency.
func OpenSpeaker(buffer time.Duration) (*Speaker, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(buffer)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	s := &Speaker{chunks: make(chan [][2]float64, speakerQueue)}
	speaker.Play(s)
	return s, nil
}

func (s *Speaker) Write(chunk [][2]float64) error {
	s.chunks <- append([][2]float64(nil), chunk...)
	return nil
}

// Stream feeds the device, playing silence whenever the queue is empty.
func (s *Speaker) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if len(s.cur) == 0 {
			select {
			case s.cur = <-s.chunks:
			default:
				clear(samples[n:])
				return len(samples), true
			}
		}
		copied := copy(samples[n:], s.cur)
		s.cur = s.cur[copied:]
		n += copied
	}
	return n, true
}

func (s *Speaker) Err() error { return nil }

func (s *Speaker) Close() {
	speaker.Close()
}
