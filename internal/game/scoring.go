// internal/game/scoring.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/pitch/internal/models"
)

// TeamScores is the cumulative scoreboard, indexed by team. Scores have no floor.
type TeamScores [NumTeams]int

// GameValues sums the card-point value of every captured card per team.
func GameValues(cardsWon [NumSeats][]models.Card) [NumTeams]int {
	var v [NumTeams]int
	for seat, cards := range cardsWon {
		for _, c := range cards {
			v[TeamOf(seat)] += c.Rank.GameValue()
		}
	}
	return v
}

// GamePointTeam returns the team with the higher game value, or -1 on a tie.
func GamePointTeam(values [NumTeams]int) int {
	switch {
	case values[0] > values[1]:
		return 0
	case values[1] > values[0]:
		return 1
	default:
		return -1
	}
}

// RoundResult is the settled outcome of one deal.
type RoundResult struct {
	Dealer      int  `json:"dealer"`
	BidWinner   int  `json:"bid_winner"`
	BidAmount   int  `json:"bid_amount"`
	BiddingTeam int  `json:"bidding_team"`
	Stuck       bool `json:"stuck"`

	Trump    *models.Suit `json:"trump,omitempty"`
	Holdings Holdings     `json:"holdings"`
	GameTeam int          `json:"game_team"` // -1 on a tie

	GameValues    [NumTeams]int `json:"game_values"`
	TeamTricks    [NumTeams]int `json:"team_tricks"`
	SpecialPoints [NumTeams]int `json:"special_points"`

	TotalPoints int        `json:"total_points"`
	BidMade     bool       `json:"bid_made"`
	ScoreDelta  TeamScores `json:"score_delta"`
	Scores      TeamScores `json:"scores"`
}

// SpecialPoints returns the team totals of the jack, low, high and game points,
// given which team (or -1) took the game point.
func SpecialPoints(h Holdings, gameTeam int) [NumTeams]int {
	pts := h.TeamPoints()
	if gameTeam >= 0 {
		pts[gameTeam]++
	}
	if pts[0]+pts[1] > 4 {
		panic(fmt.Sprintf("game: special points %v exceed 4", pts))
	}
	return pts
}

// SettleRound scores a completed round into scores. Only the bidding team's
// score moves: it gains its made total, or loses the bid when set.
func SettleRound(r *Round, scores *TeamScores) RoundResult {
	if !r.Complete {
		panic("game: SettleRound called before the last trick")
	}
	team := r.BiddingTeam()
	values := GameValues(r.CardsWon)
	gameTeam := GamePointTeam(values)
	special := SpecialPoints(r.Holdings, gameTeam)

	var tricks [NumTeams]int
	for seat, n := range r.TrickWins {
		tricks[TeamOf(seat)] += n
	}

	res := RoundResult{
		Dealer:        r.Dealer,
		BidWinner:     r.BidWinner,
		BidAmount:     r.BidAmount,
		BiddingTeam:   team,
		Stuck:         r.Stuck,
		Trump:         r.Trump,
		Holdings:      r.Holdings,
		GameTeam:      gameTeam,
		GameValues:    values,
		TeamTricks:    tricks,
		SpecialPoints: special,
		TotalPoints:   tricks[team] + special[team],
	}
	if res.TotalPoints >= r.BidAmount {
		res.BidMade = true
		res.ScoreDelta[team] = res.TotalPoints
	} else {
		res.ScoreDelta[team] = -r.BidAmount
	}
	scores[team] += res.ScoreDelta[team]
	res.Scores = *scores
	return res
}

// GameOver reports whether either team has reached target. When both have,
// the higher score wins; the bidding team breaks an exact tie since only it
// can have moved this round.
func GameOver(scores TeamScores, target, lastBiddingTeam int) (bool, int) {
	reached0 := scores[0] >= target
	reached1 := scores[1] >= target
	switch {
	case reached0 && reached1:
		if scores[0] == scores[1] && lastBiddingTeam >= 0 {
			return true, lastBiddingTeam
		}
		if scores[0] > scores[1] {
			return true, 0
		}
		return true, 1
	case reached0:
		return true, 0
	case reached1:
		return true, 1
	}
	return false, -1
}
