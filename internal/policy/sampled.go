// internal/policy/sampled.go
package policy

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/jason-s-yu/pitch/internal/models"
)

// Scorer turns a feature vector into a probability (or unnormalised weight)
// per action. Any inference backend can sit behind it.
type Scorer interface {
	Predict(ctx context.Context, features []float32) ([]float32, error)
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(ctx context.Context, features []float32) ([]float32, error)

func (f ScorerFunc) Predict(ctx context.Context, features []float32) ([]float32, error) {
	return f(ctx, features)
}

// Sampled draws an action from a scorer's output restricted to the legal
// mask. A nil scorer yields ErrNoModel so the caller can fall back.
type Sampled struct {
	Bidding Scorer
	Playing Scorer

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampled builds a Sampled provider. Either scorer may be nil.
func NewSampled(bidding, playing Scorer, seed int64) *Sampled {
	return &Sampled{Bidding: bidding, Playing: playing, rng: rand.New(rand.NewSource(seed))}
}

func (s *Sampled) ChooseBid(ctx context.Context, features []float32, mask []bool) (int, error) {
	return s.choose(ctx, s.Bidding, features, mask)
}

func (s *Sampled) ChoosePlay(ctx context.Context, features []float32, mask []bool) (int, error) {
	return s.choose(ctx, s.Playing, features, mask)
}

func (s *Sampled) choose(ctx context.Context, sc Scorer, features []float32, mask []bool) (int, error) {
	if sc == nil {
		return -1, ErrNoModel
	}
	probs, err := sc.Predict(ctx, features)
	if err != nil {
		return -1, fmt.Errorf("predict: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return SampleMasked(probs, mask, s.rng)
}

// SampleMasked zeroes illegal entries, renormalises and samples. When every
// legal entry has zero weight it samples uniformly among legal actions.
func SampleMasked(probs []float32, mask []bool, rng *rand.Rand) (int, error) {
	if len(probs) != len(mask) {
		return -1, fmt.Errorf("%d probabilities for %d actions: %w", len(probs), len(mask), ErrShapeMismatch)
	}
	var total float64
	for i, p := range probs {
		if mask[i] && p > 0 {
			total += float64(p)
		}
	}
	if total == 0 {
		return PickRandom(mask, rng)
	}

	target := rng.Float64() * total
	last := -1
	for i, p := range probs {
		if !mask[i] || p <= 0 {
			continue
		}
		last = i
		target -= float64(p)
		if target < 0 {
			return i, nil
		}
	}
	// rounding can leave a sliver of mass; the last legal entry absorbs it
	return last, nil
}

// HeuristicBidScorer weights bids by the count of jacks and above in the
// hand block. Pass keeps a weight of one.
var HeuristicBidScorer = ScorerFunc(func(_ context.Context, features []float32) ([]float32, error) {
	if len(features) != BiddingFeatureWidth {
		return nil, fmt.Errorf("%d bidding features: %w", len(features), ErrShapeMismatch)
	}
	var strength float32
	for i := 0; i < models.NumCards; i++ {
		if features[i] > 0 && models.Rank(i/models.NumSuits) >= models.Jack {
			strength++
		}
	}
	return []float32{1, strength, strength / 2, strength / 4}, nil
})

// HeuristicPlayScorer favours higher ranks.
var HeuristicPlayScorer = ScorerFunc(func(_ context.Context, features []float32) ([]float32, error) {
	if len(features) != PlayingFeatureWidth {
		return nil, fmt.Errorf("%d playing features: %w", len(features), ErrShapeMismatch)
	}
	out := make([]float32, NumPlayActions)
	for i := range out {
		out[i] = float32(1 + i/models.NumSuits)
	}
	return out, nil
})

// NewHeuristicSampled samples from the built-in heuristic scorers.
func NewHeuristicSampled(seed int64) *Sampled {
	return NewSampled(HeuristicBidScorer, HeuristicPlayScorer, seed)
}
