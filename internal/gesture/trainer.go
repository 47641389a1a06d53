package gesture

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/isyarat/internal/detector"
)

// Trainer processes recorded samples into sign templates.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Sample is one recorded pose for a sign.
type Sample struct {
	Pose      detector.PoseVector `json:"pose"`
	Timestamp int64               `json:"timestamp"`
}

// Train parses raw samples and averages them. See TrainPoses.
func (t *Trainer) Train(samples []json.RawMessage) ([]detector.HandLandmarks, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	poses := make([]detector.PoseVector, 0, len(samples))
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		poses = append(poses, sample.Pose)
	}

	return t.TrainPoses(poses)
}

// TrainPoses normalizes every hand of every pose and averages them point by
// point. All poses must show the same hands.
func (t *Trainer) TrainPoses(poses []detector.PoseVector) ([]detector.HandLandmarks, error) {
	if len(poses) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	present := handMask(poses[0])
	if len(present) == 0 {
		return nil, fmt.Errorf("sample 0 has no landmarks")
	}
	for i, p := range poses {
		mask := handMask(p)
		if len(mask) != len(present) {
			return nil, fmt.Errorf("sample %d has %d hands, expected %d", i, len(mask), len(present))
		}
		for j := range mask {
			if mask[j] != present[j] {
				return nil, fmt.Errorf("sample %d shows different hands", i)
			}
		}
	}

	averaged := make([]detector.HandLandmarks, len(present))
	n := float64(len(poses))

	for h, slot := range present {
		var sum [detector.NumLandmarks]detector.Point3D
		for _, p := range poses {
			hand, _ := p.Hand(slot)
			norm := hand.Normalize()
			for k, pt := range norm.Points {
				sum[k].X += pt.X
				sum[k].Y += pt.Y
				sum[k].Z += pt.Z
			}
		}
		for k := range sum {
			averaged[h].Points[k] = detector.Point3D{
				X: sum[k].X / n,
				Y: sum[k].Y / n,
				Z: sum[k].Z / n,
			}
		}
	}

	return averaged, nil
}

// handMask lists the hand slots present in p.
func handMask(p detector.PoseVector) []int {
	var slots []int
	for i := 0; i < detector.MaxHands; i++ {
		if p.HandPresent(i) {
			slots = append(slots, i)
		}
	}
	return slots
}
