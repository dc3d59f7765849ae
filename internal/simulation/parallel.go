package simulation

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/policy"
)

// ProviderFactory builds one provider per game so seeded providers stay
// reproducible under parallel execution.
type ProviderFactory func(seed int64) policy.Provider

// BatchConfig describes a simulation batch.
type BatchConfig struct {
	Games     int
	Workers   int // <= 0 means runtime.NumCPU()
	Seed      int64
	MaxRounds int
	Rules     game.HouseRules

	// NewProvider seats team 0, and team 1 unless NewOpponent is set. Either
	// may be nil for random play.
	NewProvider ProviderFactory
	NewOpponent ProviderFactory

	// Progress, if set, is called after every finished game from the
	// collecting goroutine.
	Progress func(done, total int)
}

// gameJob represents a single simulation job
type gameJob struct {
	SimID int
	Seed  int64
}

// RunBatchParallel plays cfg.Games games on a worker pool. Game seeds are
// drawn up front from cfg.Seed so the aggregate does not depend on the
// worker count.
func RunBatchParallel(ctx context.Context, cfg BatchConfig) (Summary, []GameResult, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan gameJob, cfg.Games)
	results := make(chan GameResult, cfg.Games)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go worker(ctx, &wg, cfg, jobs, results, errs)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < cfg.Games; i++ {
		jobs <- gameJob{SimID: i, Seed: rng.Int63()}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	all := make([]GameResult, 0, cfg.Games)
	for r := range results {
		all = append(all, r)
		if cfg.Progress != nil {
			cfg.Progress(len(all), cfg.Games)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SimID < all[j].SimID })

	var firstErr error
	for err := range errs {
		if firstErr == nil {
			firstErr = err
		}
	}
	return Aggregate(all), all, firstErr
}

// providers builds the per-team providers for one game. Each team gets its
// own instance so seeded providers do not share state across teams.
func (cfg BatchConfig) providers(seed int64) [game.NumTeams]policy.Provider {
	var out [game.NumTeams]policy.Provider
	opponent := cfg.NewOpponent
	if opponent == nil {
		opponent = cfg.NewProvider
	}
	if cfg.NewProvider != nil {
		out[0] = cfg.NewProvider(seed)
	}
	if opponent != nil {
		out[1] = opponent(seed ^ 0x5bd1e995)
	}
	return out
}

// worker processes simulation jobs from the jobs channel
func worker(ctx context.Context, wg *sync.WaitGroup, cfg BatchConfig, jobs <-chan gameJob, results chan<- GameResult, errs chan<- error) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		res, err := RunGame(ctx, cfg.Rules, cfg.providers(job.Seed), job.Seed, cfg.MaxRounds)
		if err != nil {
			errs <- err
			return
		}
		res.SimID = job.SimID
		results <- res
	}
}
