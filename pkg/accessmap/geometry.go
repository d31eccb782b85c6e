package accessmap

import (
	"fmt"
	"math"
)

// curveBow is the share of the ring radius by which a curved ring segment is
// pulled from its chord midpoint toward the center.
const curveBow = 0.12

// CanvasConfig describes the concentric web the access map is drawn on. It is
// supplied by the rendering layer; the core never measures a display surface.
type CanvasConfig struct {
	RingCount   int     `json:"ring_count"`
	SpokeCount  int     `json:"spoke_count"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	MaxRadius   float64 `json:"max_radius"`
	RingSpacing float64 `json:"ring_spacing"`
}

// NewCanvas derives a CanvasConfig for a width×height surface. The web is
// centered and its outermost ring keeps padding pixels away from the nearest
// edge.
func NewCanvas(width, height float64, rings, spokes int, padding float64) CanvasConfig {
	maxRadius := math.Min(width, height)/2 - padding
	if maxRadius < 0 {
		maxRadius = 0
	}
	cfg := CanvasConfig{
		RingCount:  rings,
		SpokeCount: spokes,
		CenterX:    width / 2,
		CenterY:    height / 2,
		MaxRadius:  maxRadius,
	}
	if rings > 0 {
		cfg.RingSpacing = maxRadius / float64(rings)
	}
	return cfg
}

// Capacity is the number of slots on the web.
func (c CanvasConfig) Capacity() int {
	if c.RingCount <= 0 || c.SpokeCount <= 0 {
		return 0
	}
	return c.RingCount * c.SpokeCount
}

// RingRadius returns the radius of ring.
func (c CanvasConfig) RingRadius(ring int) float64 {
	if c.RingCount <= 0 {
		return 0
	}
	return c.MaxRadius / float64(c.RingCount) * float64(ring)
}

// Center returns the center of the web.
func (c CanvasConfig) Center() Point {
	return Point{X: c.CenterX, Y: c.CenterY}
}

// Point is a screen coordinate. Angle is the polar angle (radians) of the
// point around the canvas center when it was produced by IntersectionPoint.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// IntersectionPoint maps the (ring, spoke) slot onto screen coordinates.
// Spoke 0 points straight up and spokes proceed clockwise in screen space.
func IntersectionPoint(ring, spoke int, cfg CanvasConfig) Point {
	angle := -math.Pi / 2
	if cfg.SpokeCount > 0 {
		angle += 2 * math.Pi * float64(spoke) / float64(cfg.SpokeCount)
	}
	radius := cfg.RingRadius(ring)
	return Point{
		X:     cfg.CenterX + radius*math.Cos(angle),
		Y:     cfg.CenterY + radius*math.Sin(angle),
		Angle: angle,
	}
}

// SlotPoint is one intersection of the web together with its slot.
type SlotPoint struct {
	Slot
	Point
}

// SlotPoints enumerates every intersection of the web, ring by ring and
// spoke by spoke.
func SlotPoints(cfg CanvasConfig) []SlotPoint {
	out := make([]SlotPoint, 0, cfg.Capacity())
	for ring := 1; ring <= cfg.RingCount; ring++ {
		for spoke := 0; spoke < cfg.SpokeCount; spoke++ {
			out = append(out, SlotPoint{
				Slot:  Slot{Ring: ring, Spoke: spoke},
				Point: IntersectionPoint(ring, spoke, cfg),
			})
		}
	}
	return out
}

// QuadCurve is a quadratic Bézier segment.
type QuadCurve struct {
	Start   Point `json:"start"`
	Control Point `json:"control"`
	End     Point `json:"end"`
}

// Path renders the curve as SVG path data.
func (q QuadCurve) Path() string {
	return fmt.Sprintf("M %.2f %.2f Q %.2f %.2f %.2f %.2f",
		q.Start.X, q.Start.Y, q.Control.X, q.Control.Y, q.End.X, q.End.Y)
}

// CurvedSegment builds the gently concave arc joining two adjacent points on
// the same ring. The control point is the chord midpoint pulled toward
// center by 12% of radius. ok is false when the midpoint coincides with the
// center, where no direction toward the center exists.
func CurvedSegment(p1, p2, center Point, radius float64) (QuadCurve, bool) {
	midX := (p1.X + p2.X) / 2
	midY := (p1.Y + p2.Y) / 2
	dx := center.X - midX
	dy := center.Y - midY
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return QuadCurve{}, false
	}
	bow := radius * curveBow
	control := Point{
		X: midX + dx/dist*bow,
		Y: midY + dy/dist*bow,
	}
	return QuadCurve{
		Start:   Point{X: p1.X, Y: p1.Y},
		Control: control,
		End:     Point{X: p2.X, Y: p2.Y},
	}, true
}
