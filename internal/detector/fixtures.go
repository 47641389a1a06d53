package detector

// LetterALandmarks returns a right hand signing "A": a closed fist with the
// thumb resting against the side of the index finger.
func LetterALandmarks() HandLandmarks {
	hand := HandLandmarks{
		Handedness: "Right",
		Score:      0.96,
	}

	hand.Points[Wrist] = Point3D{X: 0.50, Y: 0.82, Z: 0.0}

	hand.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.77, Z: -0.01}
	hand.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70, Z: -0.02}
	hand.Points[ThumbIP] = Point3D{X: 0.61, Y: 0.63, Z: -0.03}
	hand.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.58, Z: -0.03}

	hand.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.66, Z: -0.01}
	hand.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.60, Z: -0.05}
	hand.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.64, Z: -0.06}
	hand.Points[IndexTip] = Point3D{X: 0.54, Y: 0.68, Z: -0.05}

	hand.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.65, Z: -0.01}
	hand.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.59, Z: -0.05}
	hand.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.63, Z: -0.06}
	hand.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.67, Z: -0.05}

	hand.Points[RingMCP] = Point3D{X: 0.46, Y: 0.66, Z: -0.01}
	hand.Points[RingPIP] = Point3D{X: 0.46, Y: 0.61, Z: -0.05}
	hand.Points[RingDIP] = Point3D{X: 0.46, Y: 0.65, Z: -0.06}
	hand.Points[RingTip] = Point3D{X: 0.46, Y: 0.69, Z: -0.05}

	hand.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.69, Z: -0.01}
	hand.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.64, Z: -0.04}
	hand.Points[PinkyDIP] = Point3D{X: 0.42, Y: 0.67, Z: -0.05}
	hand.Points[PinkyTip] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}

	return hand
}

// LetterBLandmarks returns a right hand signing "B": four fingers extended
// and held together, thumb folded across the palm.
func LetterBLandmarks() HandLandmarks {
	hand := HandLandmarks{
		Handedness: "Right",
		Score:      0.94,
	}

	hand.Points[Wrist] = Point3D{X: 0.50, Y: 0.82, Z: 0.0}

	hand.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.77, Z: -0.01}
	hand.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.71, Z: -0.03}
	hand.Points[ThumbIP] = Point3D{X: 0.52, Y: 0.68, Z: -0.05}
	hand.Points[ThumbTip] = Point3D{X: 0.48, Y: 0.67, Z: -0.06}

	hand.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.66, Z: 0.0}
	hand.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.53, Z: 0.0}
	hand.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.44, Z: 0.0}
	hand.Points[IndexTip] = Point3D{X: 0.55, Y: 0.36, Z: 0.0}

	hand.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.65, Z: 0.0}
	hand.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.51, Z: 0.0}
	hand.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.41, Z: 0.0}
	hand.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.32, Z: 0.0}

	hand.Points[RingMCP] = Point3D{X: 0.47, Y: 0.66, Z: 0.0}
	hand.Points[RingPIP] = Point3D{X: 0.47, Y: 0.53, Z: 0.0}
	hand.Points[RingDIP] = Point3D{X: 0.47, Y: 0.44, Z: 0.0}
	hand.Points[RingTip] = Point3D{X: 0.47, Y: 0.36, Z: 0.0}

	hand.Points[PinkyMCP] = Point3D{X: 0.43, Y: 0.68, Z: 0.0}
	hand.Points[PinkyPIP] = Point3D{X: 0.43, Y: 0.58, Z: 0.0}
	hand.Points[PinkyDIP] = Point3D{X: 0.43, Y: 0.50, Z: 0.0}
	hand.Points[PinkyTip] = Point3D{X: 0.43, Y: 0.43, Z: 0.0}

	return hand
}

// SparseLandmarks returns a hand whose pose segment has fewer populated
// values than the classifier will accept: only the wrist and fingertips.
func SparseLandmarks() HandLandmarks {
	hand := HandLandmarks{Handedness: "Right", Score: 0.4}
	hand.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	hand.Points[ThumbTip] = Point3D{X: 0.6, Y: 0.6}
	hand.Points[IndexTip] = Point3D{X: 0.55, Y: 0.4}
	hand.Points[MiddleTip] = Point3D{X: 0.5, Y: 0.35}
	hand.Points[RingTip] = Point3D{X: 0.45, Y: 0.4}
	hand.Points[PinkyTip] = Point3D{X: 0.4, Y: 0.45}
	return hand
}
