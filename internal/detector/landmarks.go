// Package detector turns camera frames into hand landmarks and the fixed
// pose vector the classifier consumes.
package detector

import "math"

// Landmark indices in MediaPipe hand order.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is one landmark in image-normalized coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Scale returns p divided by s.
func (p Point3D) Scale(s float64) Point3D {
	return Point3D{X: p.X / s, Y: p.Y / s, Z: p.Z / s}
}

// Distance returns the Euclidean distance between p and q.
func (p Point3D) Distance(q Point3D) float64 {
	d := p.Sub(q)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// HandLandmarks is one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness,omitempty"` // "Left" or "Right"
	Score      float64               `json:"score,omitempty"`
}

// Normalize moves the wrist to the origin and scales the hand so the
// wrist to middle-finger MCP span is 1. A degenerate hand with no span is
// only translated.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := &HandLandmarks{Handedness: h.Handedness, Score: h.Score}
	wrist := h.Points[Wrist]
	for i, p := range h.Points {
		out.Points[i] = p.Sub(wrist)
	}

	span := out.Points[MiddleMCP].Distance(Point3D{})
	if span < 1e-10 {
		return out
	}
	for i, p := range out.Points {
		out.Points[i] = p.Scale(span)
	}
	return out
}

// Distance sums the point-wise distances between two hands.
func (h *HandLandmarks) Distance(o *HandLandmarks) float64 {
	var total float64
	for i := range h.Points {
		total += h.Points[i].Distance(o.Points[i])
	}
	return total
}
