package picker

import (
	"math"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
)

const arrowGap = 40.0

// DefaultArrowRadius is the finger circle radius arrows are sized for.
const DefaultArrowRadius = 60.0

// Arrow is a filled seven-point polygon pointing at a winner. Points[0] is
// the tip.
type Arrow struct {
	Winner registry.ID       `json:"winner"`
	Color  color.RGB         `json:"color"`
	Points [7]registry.Point `json:"points"`
}

// ArrowPolygon returns the arrow pointing at a circle of radius r centered
// at c, coming from the viewport corner furthest from it. It reports false
// when the circle sits exactly on that corner (a zero-size viewport).
func ArrowPolygon(c registry.Point, width, height, r float64) ([7]registry.Point, bool) {
	var pts [7]registry.Point

	corners := [4]registry.Point{{X: 0, Y: 0}, {X: width, Y: 0}, {X: 0, Y: height}, {X: width, Y: height}}
	far := corners[0]
	maxDist := -1.0
	for _, corner := range corners {
		dx, dy := c.X-corner.X, c.Y-corner.Y
		if d := dx*dx + dy*dy; d > maxDist {
			maxDist = d
			far = corner
		}
	}

	dist := math.Sqrt(maxDist)
	if dist == 0 {
		return pts, false
	}
	nx := (c.X - far.X) / dist
	ny := (c.Y - far.Y) / dist
	px, py := -ny, nx

	headLen, bodyLen := 0.8*r, 1.2*r
	headHalf, bodyHalf := 0.8*r, 0.4*r

	tip := registry.Point{X: c.X - nx*(r+arrowGap), Y: c.Y - ny*(r+arrowGap)}
	base := registry.Point{X: tip.X - nx*headLen, Y: tip.Y - ny*headLen}
	back := registry.Point{X: base.X - nx*bodyLen, Y: base.Y - ny*bodyLen}

	side := func(p registry.Point, w float64) registry.Point {
		return registry.Point{X: p.X + px*w, Y: p.Y + py*w}
	}

	pts[0] = tip
	pts[1] = side(base, headHalf)
	pts[2] = side(base, bodyHalf)
	pts[3] = side(back, bodyHalf)
	pts[4] = side(back, -bodyHalf)
	pts[5] = side(base, -bodyHalf)
	pts[6] = side(base, -headHalf)
	return pts, true
}

// WinnerArrows returns one arrow per winner of the finished round, drawn in
// the winner's color. Empty until a round is decided.
func (m *StateMachine) WinnerArrows(width, height, radius float64) []Arrow {
	if m.outcome == nil {
		return nil
	}
	var arrows []Arrow
	for _, id := range m.outcome.Winners {
		c, ok := m.registry.Get(id)
		if !ok {
			continue
		}
		pts, ok := ArrowPolygon(c.Position, width, height, radius)
		if !ok {
			continue
		}
		arrows = append(arrows, Arrow{Winner: id, Color: c.Color, Points: pts})
	}
	return arrows
}

// SetViewport records the size of the screen the game is drawn on. Once it
// is set, snapshots of a finished round carry the winner arrows. A zero
// size turns them off.
func (m *StateMachine) SetViewport(width, height float64) {
	if width <= 0 || height <= 0 {
		width, height = 0, 0
	}
	m.viewWidth, m.viewHeight = width, height
}

// Viewport returns the size set by SetViewport.
func (m *StateMachine) Viewport() (width, height float64) {
	return m.viewWidth, m.viewHeight
}
