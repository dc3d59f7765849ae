// internal/game/round.go
package game

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/pitch/internal/models"
)

const (
	NumSeats = 4
	NumTeams = 2

	// DefaultHandSize is the number of cards dealt to each seat. Only 24 of the
	// 52 cards are in play each round; the rest stay in the undealt stock.
	DefaultHandSize = 6
)

// TeamOf returns the partnership of a seat: seats 0/2 are team 0, seats 1/3 team 1.
func TeamOf(seat int) int { return seat % NumTeams }

// NextSeat returns the seat clockwise from seat.
func NextSeat(seat int) int { return (seat + 1) % NumSeats }

func validSeat(seat int) bool { return seat >= 0 && seat < NumSeats }

// Bid records one auction action. Amount 0 is a pass.
type Bid struct {
	Seat   int `json:"seat"`
	Amount int `json:"amount"`
}

// Play is a single card played into a trick.
type Play struct {
	Seat int         `json:"seat"`
	Card models.Card `json:"card"`
}

// Trick holds plays in the exact order they were made. Winner is -1 until
// all four cards are in.
type Trick struct {
	Plays  []Play `json:"plays"`
	Winner int    `json:"winner"`
}

func newTrick() Trick { return Trick{Winner: -1} }

// LeadSuit returns the suit of the first card played, if any.
func (t Trick) LeadSuit() (models.Suit, bool) {
	if len(t.Plays) == 0 {
		return 0, false
	}
	return t.Plays[0].Card.Suit, true
}

// Cards returns the trick's cards in play order.
func (t Trick) Cards() []models.Card {
	out := make([]models.Card, len(t.Plays))
	for i, p := range t.Plays {
		out[i] = p.Card
	}
	return out
}

func (t Trick) clone() Trick {
	return Trick{Plays: append([]Play(nil), t.Plays...), Winner: t.Winner}
}

// Round is the mutable record of a single deal, from the first bid to the
// last trick.
type Round struct {
	Dealer   int
	HandSize int
	StuckBid int

	Hands         [NumSeats][]models.Card
	OriginalHands [NumSeats][]models.Card

	Bids          []Bid
	BidWinner     int // -1 until someone bids or the dealer is stuck
	BidAmount     int
	Stuck         bool
	AuctionClosed bool

	Trump    *models.Suit
	Holdings Holdings

	Trick     Trick
	PrevTrick *Trick
	Tricks    []Trick
	History   []models.Card

	TrickWins [NumSeats]int
	CardsWon  [NumSeats][]models.Card

	CurrentPlayer int
	Complete      bool
}

// NewRound builds a round from already dealt hands. Bidding starts left of the dealer.
func NewRound(dealer int, hands [NumSeats][]models.Card, stuckBid int) (*Round, error) {
	if !validSeat(dealer) {
		return nil, fmt.Errorf("dealer %d: %w", dealer, ErrUnknownSeat)
	}
	size := len(hands[0])
	seen := make(map[models.Card]bool, size*NumSeats)
	for seat, h := range hands {
		if len(h) != size {
			return nil, fmt.Errorf("seat %d holds %d cards, expected %d", seat, len(h), size)
		}
		for _, c := range h {
			if !c.Valid() {
				return nil, fmt.Errorf("seat %d holds invalid card %v", seat, c)
			}
			if seen[c] {
				return nil, fmt.Errorf("card %s dealt twice", c)
			}
			seen[c] = true
		}
	}
	if stuckBid == 0 {
		stuckBid = BidActions[1]
	}

	r := &Round{
		Dealer:        dealer,
		HandSize:      size,
		StuckBid:      stuckBid,
		BidWinner:     -1,
		Trick:         newTrick(),
		CurrentPlayer: NextSeat(dealer),
		Holdings:      noHoldings(),
	}
	for seat := range hands {
		r.Hands[seat] = append([]models.Card(nil), hands[seat]...)
		r.OriginalHands[seat] = append([]models.Card(nil), hands[seat]...)
	}
	return r, nil
}

// DealRound shuffles a fresh deck with rng and deals handSize cards to each
// seat, one card at a time, from the top of the deck.
func DealRound(dealer int, rng *rand.Rand, handSize, stuckBid int) (*Round, error) {
	if handSize <= 0 || handSize*NumSeats > models.NumCards {
		return nil, fmt.Errorf("hand size %d cannot be dealt to %d seats", handSize, NumSeats)
	}
	deck := models.NewDeck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	var hands [NumSeats][]models.Card
	for i := 0; i < handSize; i++ {
		for seat := 0; seat < NumSeats; seat++ {
			top := len(deck) - 1
			hands[seat] = append(hands[seat], deck[top])
			deck = deck[:top]
		}
	}
	return NewRound(dealer, hands, stuckBid)
}

// BiddingTeam returns the team of the bid winner, or -1 before the auction closes.
func (r *Round) BiddingTeam() int {
	if r.BidWinner < 0 {
		return -1
	}
	return TeamOf(r.BidWinner)
}

// BidOf returns the amount bid by seat and whether that seat has bid yet.
func (r *Round) BidOf(seat int) (int, bool) {
	for _, b := range r.Bids {
		if b.Seat == seat {
			return b.Amount, true
		}
	}
	return 0, false
}

// CardsDealt is the number of cards each seat started with times the seat count.
func (r *Round) CardsDealt() int { return r.HandSize * NumSeats }

func (r *Round) handsEmpty() bool {
	for _, h := range r.Hands {
		if len(h) > 0 {
			return false
		}
	}
	return true
}
