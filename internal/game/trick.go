// internal/game/trick.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/pitch/internal/models"
)

// TrickOutcome reports what a single card play caused.
type TrickOutcome struct {
	TrumpSet      bool
	TrickComplete bool
	Winner        int // seat that took the trick, -1 while the trick is open
	RoundComplete bool
}

// canPlay applies the follow rules to one card: any card may lead; after
// that a player must follow the lead suit if able, and may always trump.
func canPlay(hand []models.Card, card models.Card, lead *models.Suit, trump *models.Suit) bool {
	if lead == nil {
		return true
	}
	if trump != nil && card.Suit == *trump {
		return true
	}
	if card.Suit == *lead {
		return true
	}
	return !models.HasSuit(hand, *lead)
}

func (r *Round) leadSuit() *models.Suit {
	if s, ok := r.Trick.LeadSuit(); ok {
		return &s
	}
	return nil
}

// LegalMoves returns the cards seat may play right now. It is empty when it
// is not seat's turn to play, and never empty when it is.
func (r *Round) LegalMoves(seat int) []models.Card {
	if !validSeat(seat) || !r.AuctionClosed || r.Complete || seat != r.CurrentPlayer {
		return nil
	}
	hand := r.Hands[seat]
	lead := r.leadSuit()
	out := make([]models.Card, 0, len(hand))
	for _, c := range hand {
		if canPlay(hand, c, lead, r.Trump) {
			out = append(out, c)
		}
	}
	return out
}

// LegalMoveMask is LegalMoves laid out over the 52 card indices.
func (r *Round) LegalMoveMask(seat int) [models.NumCards]bool {
	var mask [models.NumCards]bool
	for _, c := range r.LegalMoves(seat) {
		mask[c.Index()] = true
	}
	return mask
}

// PlayCard removes card from seat's hand and adds it to the current trick.
// The bid winner's opening lead fixes trump. When the fourth card lands the
// trick is resolved and the winner leads next.
func (r *Round) PlayCard(seat int, card models.Card) (TrickOutcome, error) {
	out := TrickOutcome{Winner: -1}
	if !validSeat(seat) {
		return out, fmt.Errorf("seat %d: %w", seat, ErrUnknownSeat)
	}
	if !r.AuctionClosed || r.Complete {
		return out, fmt.Errorf("no trick in progress: %w", ErrWrongPhase)
	}
	if seat != r.CurrentPlayer {
		return out, fmt.Errorf("seat %d played, seat %d to act: %w", seat, r.CurrentPlayer, ErrNotYourTurn)
	}
	hand := r.Hands[seat]
	pos := models.IndexOf(hand, card)
	if pos < 0 {
		return out, fmt.Errorf("%s not in hand: %w", card, ErrIllegalCard)
	}
	lead := r.leadSuit()
	if !canPlay(hand, card, lead, r.Trump) {
		return out, fmt.Errorf("%s must follow %s: %w", card, *lead, ErrIllegalCard)
	}

	next := make([]models.Card, 0, len(hand)-1)
	next = append(next, hand[:pos]...)
	r.Hands[seat] = append(next, hand[pos+1:]...)
	r.Trick.Plays = append(r.Trick.Plays, Play{Seat: seat, Card: card})
	r.History = append(r.History, card)

	if len(r.History) == 1 && seat == r.BidWinner {
		r.fixTrump(card.Suit)
		out.TrumpSet = true
	}

	r.CurrentPlayer = NextSeat(seat)
	if len(r.Trick.Plays) < NumSeats {
		return out, nil
	}

	winner := TrickWinner(r.Trick.Plays, r.Trump)
	r.TrickWins[winner]++
	r.CardsWon[winner] = append(r.CardsWon[winner], r.Trick.Cards()...)
	r.Trick.Winner = winner

	done := r.Trick.clone()
	r.Tricks = append(r.Tricks, done)
	r.PrevTrick = &done
	r.Trick = newTrick()
	r.CurrentPlayer = winner

	out.TrickComplete = true
	out.Winner = winner
	if r.handsEmpty() {
		r.Complete = true
		out.RoundComplete = true
	}
	return out, nil
}

// Beats reports whether challenger takes a trick currently held by holder.
// Trump outranks everything, then the lead suit, then plain rank.
func Beats(challenger, holder models.Card, lead models.Suit, trump *models.Suit) bool {
	cTrump := trump != nil && challenger.Suit == *trump
	hTrump := trump != nil && holder.Suit == *trump
	switch {
	case cTrump && !hTrump:
		return true
	case !cTrump && hTrump:
		return false
	case cTrump && hTrump:
		return challenger.Rank > holder.Rank
	}

	cLead := challenger.Suit == lead
	hLead := holder.Suit == lead
	switch {
	case cLead && !hLead:
		return true
	case !cLead && hLead:
		return false
	}
	// Both follow, or neither does. The latter never decides a real trick.
	return challenger.Rank > holder.Rank
}

// TrickWinner walks the plays in order and returns the seat holding the
// trick at the end.
func TrickWinner(plays []Play, trump *models.Suit) int {
	if len(plays) == 0 {
		panic("game: TrickWinner called on an empty trick")
	}
	lead := plays[0].Card.Suit
	best := plays[0]
	for _, p := range plays[1:] {
		if Beats(p.Card, best.Card, lead, trump) {
			best = p
		}
	}
	return best.Seat
}
