package simulation

import (
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/rating"
)

// Summary aggregates a batch of games.
type Summary struct {
	Games    int
	TeamWins [game.NumTeams]int
	Capped   int

	Rounds    int
	AvgRounds float64

	// per round
	SetRate   float64 // bidding team failed its bid
	StuckRate float64 // everyone passed and the dealer took the stuck bid
	AvgPoints float64 // points awarded to the bidding team

	BidHistogram map[int]int // winning bid amount -> rounds
	MadeByBid    map[int]int // winning bid amount -> rounds where the bid was made

	// Glicko-2 ratings of the two teams' policies, capped games as draws
	Ratings rating.Matchup
}

// MadeRate returns the share of rounds won at amount that made their bid.
func (s Summary) MadeRate(amount int) float64 {
	n := s.BidHistogram[amount]
	if n == 0 {
		return 0
	}
	return float64(s.MadeByBid[amount]) / float64(n)
}

// Aggregate folds game results into a Summary. Ratings depend on the order
// of results.
func Aggregate(results []GameResult) Summary {
	s := Summary{
		BidHistogram: make(map[int]int),
		MadeByBid:    make(map[int]int),
		Ratings:      *rating.NewMatchup(),
	}
	var set, stuck, points int
	for _, r := range results {
		s.Games++
		if r.Capped || r.Winner < 0 {
			s.Capped++
		} else {
			s.TeamWins[r.Winner]++
		}
		s.Ratings.Record(r.Winner)
		for _, rr := range r.Rounds {
			s.Rounds++
			s.BidHistogram[rr.BidAmount]++
			if rr.BidMade {
				s.MadeByBid[rr.BidAmount]++
			} else {
				set++
			}
			if rr.Stuck {
				stuck++
			}
			points += rr.TotalPoints
		}
	}
	if s.Games > 0 {
		s.AvgRounds = float64(s.Rounds) / float64(s.Games)
	}
	if s.Rounds > 0 {
		s.SetRate = float64(set) / float64(s.Rounds)
		s.StuckRate = float64(stuck) / float64(s.Rounds)
		s.AvgPoints = float64(points) / float64(s.Rounds)
	}
	return s
}
