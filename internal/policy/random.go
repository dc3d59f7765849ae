// internal/policy/random.go
package policy

import (
	"context"
	"math/rand"
	"sync"
)

// Random picks uniformly among legal actions. It is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random provider seeded with seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) pick(ctx context.Context, mask []bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return PickRandom(mask, r.rng)
}

func (r *Random) ChooseBid(ctx context.Context, _ []float32, mask []bool) (int, error) {
	return r.pick(ctx, mask)
}

func (r *Random) ChoosePlay(ctx context.Context, _ []float32, mask []bool) (int, error) {
	return r.pick(ctx, mask)
}
