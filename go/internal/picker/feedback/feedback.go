package feedback

import (
	"time"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
)

// Collaborator receives the feedback requests the picker emits. The picker
// never waits on a collaborator; implementations must return promptly.
type Collaborator interface {
	HapticPulse(d time.Duration)
	HapticTick()
	ToneStart(d time.Duration)
	ToneStop()
	Fanfare()
	ParticleBurst(x, y float64, c color.RGB)
}

// Nop ignores every request.
type Nop struct{}

func (Nop) HapticPulse(time.Duration) {}
func (Nop) HapticTick() {}
func (Nop) ToneStart(time.Duration) {}
func (Nop) ToneStop() {}
func (Nop) Fanfare() {}
func (Nop) ParticleBurst(float64, float64, color.RGB) {}

// Fanout forwards each request to every collaborator in order.
type Fanout []Collaborator

func (f Fanout) HapticPulse(d time.Duration) {
	for _, c := range f {
		c.HapticPulse(d)
	}
}

func (f Fanout) HapticTick() {
	for _, c := range f {
		c.HapticTick()
	}
}

func (f Fanout) ToneStart(d time.Duration) {
	for _, c := range f {
		c.ToneStart(d)
	}
}

func (f Fanout) ToneStop() {
	for _, c := range f {
		c.ToneStop()
	}
}

func (f Fanout) Fanfare() {
	for _, c := range f {
		c.Fanfare()
	}
}

func (f Fanout) ParticleBurst(x, y float64, col color.RGB) {
	for _, c := range f {
		c.ParticleBurst(x, y, col)
	}
}

// Func adapts a function receiving request values into a Collaborator.
type Func func(events.Request)

func (f Func) HapticPulse(d time.Duration) {
	f(events.Request{Type: events.RequestHapticPulse, DurationMs: d.Milliseconds()})
}

func (f Func) HapticTick() {
	f(events.Request{Type: events.RequestHapticTick})
}

func (f Func) ToneStart(d time.Duration) {
	f(events.Request{Type: events.RequestToneStart, DurationMs: d.Milliseconds()})
}

func (f Func) ToneStop() {
	f(events.Request{Type: events.RequestToneStop})
}

func (f Func) Fanfare() {
	f(events.Request{Type: events.RequestFanfare})
}

func (f Func) ParticleBurst(x, y float64, c color.RGB) {
	f(events.Request{Type: events.RequestParticleBurst, X: x, Y: y, Color: &c})
}

// Recorder keeps every request in memory. Not safe for concurrent use.
type Recorder struct {
	Requests []events.Request
}

// Collaborator returns a Collaborator appending to the recorder.
func (r *Recorder) Collaborator() Collaborator {
	return Func(func(req events.Request) {
		r.Requests = append(r.Requests, req)
	})
}

// Types returns the recorded request types in order.
func (r *Recorder) Types() []events.RequestType {
	out := make([]events.RequestType, 0, len(r.Requests))
	for _, req := range r.Requests {
		out = append(out, req.Type)
	}
	return out
}

// Count returns how many requests of type t were recorded.
func (r *Recorder) Count(t events.RequestType) int {
	n := 0
	for _, req := range r.Requests {
		if req.Type == t {
			n++
		}
	}
	return n
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.Requests = nil
}
