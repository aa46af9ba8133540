package bridge

import "fmt"

// Normalized is a heart rate mapped onto the [0,1] control range.
type Normalized struct {
	Value       float64
	ClampedLow  bool
	ClampedHigh bool
}

// Normalizer maps a configured BPM domain onto [0,1].
type Normalizer struct {
	minBPM int
	maxBPM int
}

// NewNormalizer creates a Normalizer for the domain [minBPM, maxBPM].
// A degenerate range is a configuration error and is rejected here, at
// startup, rather than per reading.
func NewNormalizer(minBPM, maxBPM int) (*Normalizer, error) {
	if maxBPM <= minBPM {
		return nil, fmt.Errorf("bridge: bpm range [%d,%d] is degenerate", minBPM, maxBPM)
	}
	return &Normalizer{minBPM: minBPM, maxBPM: maxBPM}, nil
}

// Normalize maps bpm onto [0,1]. Out-of-range readings clamp and set the
// corresponding flag; a reading is never rejected for being out of range.
func (n *Normalizer) Normalize(bpm int) Normalized {
	switch {
	case bpm <= n.minBPM:
		return Normalized{Value: 0, ClampedLow: bpm < n.minBPM}
	case bpm >= n.maxBPM:
		return Normalized{Value: 1, ClampedHigh: bpm > n.maxBPM}
	default:
		return Normalized{Value: float64(bpm-n.minBPM) / float64(n.maxBPM-n.minBPM)}
	}
}
