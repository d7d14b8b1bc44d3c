package registry

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
)

// ID is the opaque touch identity of a finger (pointer id / touch sequence).
type ID int64

// Point is a screen position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contestant is one finger on the screen.
type Contestant struct {
	ID       ID
	Position Point
	Color    color.RGB
	JoinedAt time.Time

	// TeamColor is set by the group split. Color is overwritten at the same
	// time; the pre-split color is not kept.
	TeamColor *color.RGB
}

// ColorSource hands out colors for new contestants.
type ColorSource interface {
	Allocate(existing []color.RGB) color.RGB
}

// Registry maps touch identities to contestants. It is not safe for
// concurrent use; the owning state machine serializes all calls.
type Registry struct {
	clock   clockwork.Clock
	colors  ColorSource
	neutral *color.RGB
	byID    map[ID]*Contestant
	order   []ID
}

// New creates an empty registry.
func New(clock clockwork.Clock, colors ColorSource) *Registry {
	return &Registry{
		clock:  clock,
		colors: colors,
		byID:   make(map[ID]*Contestant),
	}
}

// SetNeutral makes every subsequent Add use c instead of an allocated color.
// Passing nil switches back to allocation.
func (r *Registry) SetNeutral(c *color.RGB) {
	if c == nil {
		r.neutral = nil
		return
	}
	neutral := *c
	r.neutral = &neutral
}

// Add inserts a contestant and returns its color. A duplicate id is ignored
// and reported with ok=false.
func (r *Registry) Add(id ID, pos Point) (c color.RGB, ok bool) {
	if existing, exists := r.byID[id]; exists {
		return existing.Color, false
	}

	if r.neutral != nil {
		c = *r.neutral
	} else {
		c = r.colors.Allocate(r.Colors())
	}

	r.byID[id] = &Contestant{
		ID:       id,
		Position: pos,
		Color:    c,
		JoinedAt: r.clock.Now(),
	}
	r.order = append(r.order, id)
	return c, true
}

// Move updates the position of a known contestant.
func (r *Registry) Move(id ID, pos Point) bool {
	c, ok := r.byID[id]
	if !ok {
		return false
	}
	c.Position = pos
	return true
}

// Remove deletes a contestant.
func (r *Registry) Remove(id ID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every contestant.
func (r *Registry) Clear() {
	clear(r.byID)
	r.order = r.order[:0]
}

// Count returns the number of contestants.
func (r *Registry) Count() int {
	return len(r.order)
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.byID[id]
	return ok
}

// IDs returns the identities in insertion order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

// Get returns a copy of the contestant for id.
func (r *Registry) Get(id ID) (Contestant, bool) {
	c, ok := r.byID[id]
	if !ok {
		return Contestant{}, false
	}
	return *c, true
}

// Contestants returns copies of all contestants in insertion order.
func (r *Registry) Contestants() []Contestant {
	out := make([]Contestant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Colors returns the current display colors in insertion order.
func (r *Registry) Colors() []color.RGB {
	out := make([]color.RGB, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Color)
	}
	return out
}

// AssignTeam overwrites the contestant's display color with the team color.
func (r *Registry) AssignTeam(id ID, team color.RGB) bool {
	c, ok := r.byID[id]
	if !ok {
		return false
	}
	teamColor := team
	c.TeamColor = &teamColor
	c.Color = team
	return true
}
