// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/models"
)

// SeatState is one seat as seen in a snapshot. Hand is nil for seats the
// viewer may not see; HandSize is always filled.
type SeatState struct {
	Seat      int           `json:"seat"`
	Team      int           `json:"team"`
	Human     bool          `json:"human"`
	Hand      []models.Card `json:"hand,omitempty"`
	HandSize  int           `json:"hand_size"`
	Bid       *int          `json:"bid,omitempty"`
	TrickWins int           `json:"trick_wins"`
	CardsWon  []models.Card `json:"cards_won,omitempty"`
}

// Snapshot is a read-only copy of the game, safe to marshal and hand to
// other goroutines.
type Snapshot struct {
	GameID     uuid.UUID  `json:"game_id"`
	Generation uint64     `json:"generation"`
	Phase      Phase      `json:"phase"`
	Scores     TeamScores `json:"scores"`
	Winner     int        `json:"winner"` // team, -1 until game over
	AutoPlay   bool       `json:"auto_play"`

	RoundNumber   int          `json:"round_number"`
	Dealer        int          `json:"dealer"`
	CurrentPlayer int          `json:"current_player"`
	BidWinner     int          `json:"bid_winner"`
	BidAmount     int          `json:"bid_amount"`
	BiddingTeam   int          `json:"bidding_team"`
	Trump         *models.Suit `json:"trump,omitempty"`
	Holdings      Holdings     `json:"holdings"`

	Seats     [NumSeats]SeatState `json:"seats"`
	Trick     Trick               `json:"trick"`
	PrevTrick *Trick              `json:"prev_trick,omitempty"`
	History   []models.Card       `json:"history"`

	LegalBids  [NumBidActions]bool `json:"legal_bids"`
	LegalMoves []models.Card       `json:"legal_moves,omitempty"` // for the seat on turn

	LastRoundResult *RoundResult `json:"last_round_result,omitempty"`
}

// snapshot builds a full snapshot. Assumes lock is held.
func (g *PitchGame) snapshot() Snapshot {
	s := Snapshot{
		GameID:        g.ID,
		Generation:    g.generation,
		Phase:         g.Phase,
		Scores:        g.Scores,
		Winner:        g.Winner,
		AutoPlay:      g.autoPlay,
		RoundNumber:   g.RoundNumber,
		Dealer:        g.Dealer,
		CurrentPlayer: -1,
		BidWinner:     -1,
		BiddingTeam:   -1,
		Holdings:      noHoldings(),
		Trick:         newTrick(),
	}
	if g.LastRoundResult != nil {
		res := *g.LastRoundResult
		s.LastRoundResult = &res
	}
	for seat := 0; seat < NumSeats; seat++ {
		s.Seats[seat] = SeatState{Seat: seat, Team: TeamOf(seat), Human: g.HouseRules.IsHuman(seat)}
	}

	r := g.Round
	if r == nil {
		return s
	}
	s.Dealer = r.Dealer
	s.BidWinner = r.BidWinner
	s.BidAmount = r.BidAmount
	s.BiddingTeam = r.BiddingTeam()
	if r.Trump != nil {
		t := *r.Trump
		s.Trump = &t
	}
	s.Holdings = r.Holdings
	s.Trick = r.Trick.clone()
	if r.PrevTrick != nil {
		prev := r.PrevTrick.clone()
		s.PrevTrick = &prev
	}
	s.History = append([]models.Card(nil), r.History...)

	if g.Phase == PhaseBidding || g.Phase == PhasePlaying {
		s.CurrentPlayer = r.CurrentPlayer
		s.LegalBids = r.LegalBids()
		s.LegalMoves = r.LegalMoves(r.CurrentPlayer)
	}

	for seat := 0; seat < NumSeats; seat++ {
		st := &s.Seats[seat]
		st.Hand = append([]models.Card{}, r.Hands[seat]...)
		st.HandSize = len(r.Hands[seat])
		st.TrickWins = r.TrickWins[seat]
		st.CardsWon = append([]models.Card(nil), r.CardsWon[seat]...)
		if amt, ok := r.BidOf(seat); ok {
			st.Bid = intPtr(amt)
		}
	}
	return s
}

// ForSeat returns a copy of s in which only viewer's hand is visible. Legal
// moves are dropped unless viewer is on turn. While the round is live the
// trump holdings of other seats are hidden too, since they are derived from
// the dealt hands. A negative viewer (spectator) sees no hands.
func (s Snapshot) ForSeat(viewer int) Snapshot {
	out := s
	for seat := range out.Seats {
		if seat != viewer {
			out.Seats[seat].Hand = nil
		}
	}
	if viewer != s.CurrentPlayer {
		out.LegalMoves = nil
	}
	if s.Phase == PhaseBidding || s.Phase == PhasePlaying {
		out.Holdings = s.Holdings.visibleTo(viewer)
	}
	return out
}

func (h Holdings) visibleTo(viewer int) Holdings {
	out := noHoldings()
	if h.JackSeat == viewer {
		out.JackSeat = h.JackSeat
	}
	if h.LowSeat == viewer {
		out.LowSeat, out.LowCard = h.LowSeat, h.LowCard
	}
	if h.HighSeat == viewer {
		out.HighSeat, out.HighCard = h.HighSeat, h.HighCard
	}
	return out
}

// Snapshot returns the full state, every hand included.
func (g *PitchGame) Snapshot() Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshot()
}

// SnapshotFor returns the state as seen from seat.
func (g *PitchGame) SnapshotFor(seat int) Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshot().ForSeat(seat)
}
