package feedback

import (
	"time"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/rs/zerolog"
)

// TonePlayer plays the rising countdown tone on its own worker.
type TonePlayer interface {
	Start(d time.Duration)
	Stop()
}

// Audio routes tone requests to a TonePlayer and ignores the rest.
type Audio struct {
	Player TonePlayer
}

func (a Audio) ToneStart(d time.Duration) { a.Player.Start(d) }
func (a Audio) ToneStop() { a.Player.Stop() }

func (Audio) HapticPulse(time.Duration) {}
func (Audio) HapticTick() {}
func (Audio) Fanfare() {}
func (Audio) ParticleBurst(float64, float64, color.RGB) {}

// Logger writes each request to a zerolog logger at debug level.
type Logger struct {
	log zerolog.Logger
}

// NewLogger creates a logging collaborator.
func NewLogger(l zerolog.Logger) Logger {
	return Logger{log: l}
}

func (l Logger) HapticPulse(d time.Duration) {
	l.log.Debug().Dur("duration", d).Msg("haptic pulse requested")
}

func (l Logger) HapticTick() {
	l.log.Trace().Msg("haptic tick requested")
}

func (l Logger) ToneStart(d time.Duration) {
	l.log.Debug().Dur("duration", d).Msg("tone start requested")
}

func (l Logger) ToneStop() {
	l.log.Debug().Msg("tone stop requested")
}

func (l Logger) Fanfare() {
	l.log.Debug().Msg("fanfare requested")
}

func (l Logger) ParticleBurst(x, y float64, c color.RGB) {
	l.log.Debug().
		Float64("x", x).
		Float64("y", y).
		Str("color", c.Hex()).
		Msg("particle burst requested")
}
