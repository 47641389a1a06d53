package app

import "errors"

// Pipeline failure kinds. Only ErrClassificationUnavailable ever reaches a
// caller of Feed's results; the others are recovered as "no detection" and
// counted.
var (
	ErrExtractionTimeout         = errors.New("landmark extraction timed out")
	ErrExtractionFailure         = errors.New("landmark extraction failed")
	ErrInsufficientLandmarks     = errors.New("not enough landmarks for classification")
	ErrClassificationUnavailable = errors.New("classification unavailable")
)

var (
	ErrEmptyTarget    = errors.New("target is empty")
	ErrPipelineClosed = errors.New("pipeline closed")
)
