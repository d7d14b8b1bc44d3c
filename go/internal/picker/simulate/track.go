package simulate

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/tone"
)

// toneTrack renders tone requests against the fake clock instead of playing
// them, so a run's audio is the same every time. Each tone is cut off where
// it was stopped or replaced.
type toneTrack struct {
	feedback.Nop

	clock  clockwork.Clock
	origin time.Time
	sink   tone.Sink

	written time.Duration
	playing bool
	start   time.Duration
	length  time.Duration
	err     error
}

func (t *toneTrack) ToneStart(d time.Duration) {
	now := t.now()
	t.flush(now)
	t.playing = true
	t.start = now
	t.length = d
}

func (t *toneTrack) ToneStop() {
	t.flush(t.now())
}

func (t *toneTrack) now() time.Duration {
	return t.clock.Now().Sub(t.origin)
}

// flush writes the silence before the current tone and the part of it that
// played by at.
func (t *toneTrack) flush(at time.Duration) {
	if !t.playing || t.err != nil {
		return
	}
	t.playing = false

	played := min(at-t.start, t.length)
	if gap := t.start - t.written; gap > 0 {
		n := tone.SampleRate.N(gap)
		if t.err = drain(t.sink, beep.Silence(n), n); t.err != nil {
			return
		}
	}
	n := tone.SampleRate.N(played)
	if t.err = drain(t.sink, tone.Rising(tone.SampleRate, t.length), n); t.err != nil {
		return
	}
	t.written = t.start + played
}

func (t *toneTrack) finish() error {
	t.flush(t.now())
	return t.err
}

func drain(sink tone.Sink, s beep.Streamer, n int) error {
	buf := make([][2]float64, 1024)
	for n > 0 {
		got, ok := s.Stream(buf[:min(n, len(buf))])
		if got > 0 {
			if err := sink.Write(buf[:got]); err != nil {
				return err
			}
			n -= got
		}
		if !ok || got == 0 {
			break
		}
	}
	return nil
}
