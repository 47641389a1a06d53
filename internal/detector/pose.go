package detector

// Pose vector layout: two hands, 21 landmarks each, x/y/z per landmark.
const (
	MaxHands      = 2
	ValuesPerHand = NumLandmarks * 3
	PoseSize      = MaxHands * ValuesPerHand
)

// PoseVector is the fixed-size numeric encoding of up to two hands, laid out
// as hand0[x0,y0,z0,x1,...], hand1[...]. A hand is either fully written or
// left entirely zero.
type PoseVector [PoseSize]float32

// NewPoseVector encodes hands into a PoseVector. Hands beyond MaxHands are
// ignored. With mirrorX set, x coordinates are flipped to 1-x, which is what
// a front-facing camera needs.
func NewPoseVector(hands []HandLandmarks, mirrorX bool) PoseVector {
	var pose PoseVector
	for h := 0; h < len(hands) && h < MaxHands; h++ {
		base := h * ValuesPerHand
		for i, p := range hands[h].Points {
			x := p.X
			if mirrorX {
				x = 1 - x
			}
			pose[base+i*3] = float32(x)
			pose[base+i*3+1] = float32(p.Y)
			pose[base+i*3+2] = float32(p.Z)
		}
	}
	return pose
}

// NonZero counts the populated scalars in the vector.
func (p *PoseVector) NonZero() int {
	n := 0
	for _, v := range p {
		if v != 0 {
			n++
		}
	}
	return n
}

// HandPresent reports whether the i-th hand segment carries any data.
func (p *PoseVector) HandPresent(i int) bool {
	if i < 0 || i >= MaxHands {
		return false
	}
	for _, v := range p[i*ValuesPerHand : (i+1)*ValuesPerHand] {
		if v != 0 {
			return true
		}
	}
	return false
}

// Hands returns the number of hand segments present.
func (p *PoseVector) Hands() int {
	n := 0
	for i := 0; i < MaxHands; i++ {
		if p.HandPresent(i) {
			n++
		}
	}
	return n
}

// Hand decodes the i-th hand segment back into landmarks.
func (p *PoseVector) Hand(i int) (HandLandmarks, bool) {
	var hand HandLandmarks
	if !p.HandPresent(i) {
		return hand, false
	}
	base := i * ValuesPerHand
	for j := 0; j < NumLandmarks; j++ {
		hand.Points[j] = Point3D{
			X: float64(p[base+j*3]),
			Y: float64(p[base+j*3+1]),
			Z: float64(p[base+j*3+2]),
		}
	}
	return hand, true
}
