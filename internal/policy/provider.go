// internal/policy/provider.go
package policy

import (
	"context"
	"errors"
	"math/rand"
)

var (
	// ErrNoLegalAction is returned when a mask has no legal entry.
	ErrNoLegalAction = errors.New("no legal action in mask")
	// ErrNoModel is returned by Sampled when no scorer is loaded for a decision kind.
	ErrNoModel = errors.New("no model loaded")
	// ErrShapeMismatch is returned when a scorer's output width differs from the mask.
	ErrShapeMismatch = errors.New("probability vector does not match mask")
)

// Provider chooses an action index for a non-human seat. The returned index
// must be legal under mask; callers treat anything else as a failure and
// fall back to a uniform random legal action.
type Provider interface {
	ChooseBid(ctx context.Context, features []float32, mask []bool) (int, error)
	ChoosePlay(ctx context.Context, features []float32, mask []bool) (int, error)
}

// PickRandom returns a uniformly random index whose mask entry is true.
func PickRandom(mask []bool, rng *rand.Rand) (int, error) {
	legal := make([]int, 0, len(mask))
	for i, ok := range mask {
		if ok {
			legal = append(legal, i)
		}
	}
	if len(legal) == 0 {
		return -1, ErrNoLegalAction
	}
	return legal[rng.Intn(len(legal))], nil
}

// Legal reports whether idx is inside mask and marked legal.
func Legal(mask []bool, idx int) bool {
	return idx >= 0 && idx < len(mask) && mask[idx]
}
