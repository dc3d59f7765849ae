// cmd/simulate/main.go plays bot-only games and prints aggregate statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/policy"
	"github.com/jason-s-yu/pitch/internal/simulation"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

func main() {
	games := flag.Int("games", 1000, "number of games to play")
	workers := flag.Int("workers", 0, "worker goroutines (0 = one per CPU)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "batch seed")
	maxRounds := flag.Int("max-rounds", simulation.DefaultMaxRounds, "round cap per game")
	winning := flag.Int("winning-score", 11, "score that ends a game")
	handSize := flag.Int("hand-size", game.DefaultHandSize, "cards dealt per seat")
	policyName := flag.String("policy", "random", "team 0 policy: random or sampled")
	verbose := flag.Bool("v", false, "log every game event")
	flag.Parse()

	// games log every round at info level
	if !*verbose {
		logrus.SetLevel(logrus.WarnLevel)
	}

	rules := game.DefaultHouseRules()
	rules.WinningScore = *winning
	rules.HandSize = *handSize
	rules.HumanSeats = nil
	if err := rules.Validate(); err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	var newProvider simulation.ProviderFactory
	switch *policyName {
	case "random":
		newProvider = func(s int64) policy.Provider { return policy.NewRandom(s) }
	case "sampled":
		newProvider = func(s int64) policy.Provider { return policy.NewHeuristicSampled(s) }
	default:
		pterm.Error.Printfln("unknown policy %q", *policyName)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pterm.Info.Printfln("Playing %d games, seed %d, team 0 policy %s", *games, *seed, *policyName)
	spinner, _ := pterm.DefaultSpinner.Start("Simulating ...")
	start := time.Now()

	summary, _, err := simulation.RunBatchParallel(ctx, simulation.BatchConfig{
		Games:     *games,
		Workers:   *workers,
		Seed:      *seed,
		MaxRounds: *maxRounds,
		Rules:     rules,
		NewProvider: newProvider,
		NewOpponent: func(s int64) policy.Provider {
			return policy.NewRandom(s)
		},
		Progress: func(done, total int) {
			if done%50 == 0 || done == total {
				spinner.UpdateText(fmt.Sprintf("Simulating ... %d/%d", done, total))
			}
		},
	})
	if err != nil {
		spinner.Fail(err.Error())
		os.Exit(1)
	}
	spinner.Success(fmt.Sprintf("Finished in %s", time.Since(start).Round(time.Millisecond)))

	printSummary(summary)
}

func pct(f float64) string { return fmt.Sprintf("%.1f%%", 100*f) }

func printSummary(s simulation.Summary) {
	overview := pterm.Sprintfln("Games: %d", s.Games) +
		pterm.Sprintfln("Team 0 wins: %d", s.TeamWins[0]) +
		pterm.Sprintfln("Team 1 wins: %d", s.TeamWins[1]) +
		pterm.Sprintfln("Capped: %d", s.Capped) +
		pterm.Sprintfln("Avg rounds: %.2f", s.AvgRounds) +
		pterm.Sprintfln("Set rate: %s", pct(s.SetRate)) +
		pterm.Sprintfln("Stuck dealer: %s", pct(s.StuckRate)) +
		pterm.Sprintfln("Avg points to bidders: %.2f", s.AvgPoints) +
		pterm.Sprintfln("Team 0 rating: %.0f ± %.0f", s.Ratings.Sides[0].Elo(), 2*s.Ratings.Sides[0].RD()) +
		pterm.Sprintf("Team 1 rating: %.0f ± %.0f", s.Ratings.Sides[1].Elo(), 2*s.Ratings.Sides[1].RD())
	pterm.DefaultBox.WithTitle(pterm.LightGreen("|SUMMARY|")).WithTitleTopCenter().
		WithLeftPadding(4).WithRightPadding(4).Println(overview)

	amounts := make([]int, 0, len(s.BidHistogram))
	for a := range s.BidHistogram {
		amounts = append(amounts, a)
	}
	sort.Ints(amounts)

	data := pterm.TableData{{"Bid", "Rounds", "Share", "Made"}}
	for _, a := range amounts {
		n := s.BidHistogram[a]
		data = append(data, []string{
			strconv.Itoa(a),
			strconv.Itoa(n),
			pct(float64(n) / float64(s.Rounds)),
			pct(s.MadeRate(a)),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}
