// Package input feeds golang.org/x/mobile app events into the picker.
package input

import (
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"

	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
)

// Target receives touch input. *picker.StateMachine implements it.
type Target interface {
	OnTouchBegin(id registry.ID, x, y float64)
	OnTouchMove(id registry.ID, x, y float64)
	OnTouchEnd(id registry.ID)
	OnTouchCancel()
	SetViewport(width, height float64)
}

// Adapter translates x/mobile events into Target calls. Calls go through
// post, which must deliver them on the target's event thread; a nil post
// calls the target directly.
type Adapter struct {
	target Target
	post   func(func())

	widthPx  int
	heightPx int
}

func New(target Target, post func(func())) *Adapter {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Adapter{target: target, post: post}
}

// Handle dispatches one event from an app event loop and reports whether
// it was one the adapter understands.
func (a *Adapter) Handle(e interface{}) bool {
	switch e := e.(type) {
	case touch.Event:
		a.Touch(e)
	case lifecycle.Event:
		a.Lifecycle(e)
	case size.Event:
		a.Resize(e)
	default:
		return false
	}
	return true
}

// Touch forwards a touch event keyed by its sequence.
func (a *Adapter) Touch(e touch.Event) {
	id := registry.ID(e.Sequence)
	x, y := float64(e.X), float64(e.Y)

	switch e.Type {
	case touch.TypeBegin:
		a.post(func() { a.target.OnTouchBegin(id, x, y) })
	case touch.TypeMove:
		a.post(func() { a.target.OnTouchMove(id, x, y) })
	case touch.TypeEnd:
		a.post(func() { a.target.OnTouchEnd(id) })
	}
}

// Lifecycle cancels the game when the app loses focus; the platform will
// not deliver the pending touch ends.
func (a *Adapter) Lifecycle(e lifecycle.Event) {
	if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
		a.post(a.target.OnTouchCancel)
	}
}

// Resize records the new window size and passes it on to the target.
func (a *Adapter) Resize(e size.Event) {
	a.widthPx, a.heightPx = e.WidthPx, e.HeightPx
	w, h := float64(e.WidthPx), float64(e.HeightPx)
	a.post(func() { a.target.SetViewport(w, h) })
}

// Viewport returns the last size reported by the platform, in pixels.
func (a *Adapter) Viewport() (width, height float64) {
	return float64(a.widthPx), float64(a.heightPx)
}
