package tone

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

const (
	SampleRate beep.SampleRate = 44100

	StartFrequency = 100.0
	EndFrequency   = 300.0
	Amplitude      = 0.5
)

// Format is the format the player generates: 16-bit stereo at SampleRate.
var Format = beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}

// Rising returns a streamer playing a sine sweep from StartFrequency to
// EndFrequency over d. The same sample goes to both channels.
func Rising(sr beep.SampleRate, d time.Duration) beep.Streamer {
	return &rising{rate: float64(sr), total: sr.N(d)}
}

type rising struct {
	rate  float64
	total int
	pos   int
	phase float64
}

func (r *rising) Stream(samples [][2]float64) (n int, ok bool) {
	if r.pos >= r.total {
		return 0, false
	}
	for i := range samples {
		if r.pos >= r.total {
			break
		}
		progress := float64(r.pos) / float64(r.total)
		freq := StartFrequency + (EndFrequency-StartFrequency)*progress

		r.phase += 2 * math.Pi * freq / r.rate
		if r.phase > 2*math.Pi {
			r.phase -= 2 * math.Pi
		}
		v := math.Sin(r.phase) * Amplitude
		samples[i] = [2]float64{v, v}
		r.pos++
		n++
	}
	return n, true
}

func (r *rising) Err() error { return nil }
