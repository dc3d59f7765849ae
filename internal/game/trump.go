// internal/game/trump.go
package game

import "github.com/jason-s-yu/pitch/internal/models"

// Holdings records who was dealt the trump cards worth a special point. Seats
// are -1 when nobody holds the card (the jack may be in the undealt stock).
type Holdings struct {
	JackSeat int          `json:"jack_seat"`
	LowSeat  int          `json:"low_seat"`
	HighSeat int          `json:"high_seat"`
	LowCard  *models.Card `json:"low_card,omitempty"`
	HighCard *models.Card `json:"high_card,omitempty"`
}

func noHoldings() Holdings {
	return Holdings{JackSeat: -1, LowSeat: -1, HighSeat: -1}
}

// ResolveTrumpHoldings scans the dealt hands for the jack, lowest and highest
// card of trump. Points are awarded for holding, not for capturing.
func ResolveTrumpHoldings(hands [NumSeats][]models.Card, trump models.Suit) Holdings {
	h := noHoldings()
	for seat, hand := range hands {
		for _, c := range hand {
			if c.Suit != trump {
				continue
			}
			card := c
			if c.Rank == models.Jack {
				h.JackSeat = seat
			}
			if h.LowCard == nil || c.Rank < h.LowCard.Rank {
				h.LowCard = &card
				h.LowSeat = seat
			}
			if h.HighCard == nil || c.Rank > h.HighCard.Rank {
				h.HighCard = &card
				h.HighSeat = seat
			}
		}
	}
	return h
}

// TeamPoints credits one special point per resolved holding to the holder's team.
func (h Holdings) TeamPoints() [NumTeams]int {
	var pts [NumTeams]int
	for _, seat := range []int{h.JackSeat, h.LowSeat, h.HighSeat} {
		if seat >= 0 {
			pts[TeamOf(seat)]++
		}
	}
	return pts
}

// fixTrump sets trump from the opening lead and resolves holdings against
// the hands as dealt, including the card just led.
func (r *Round) fixTrump(s models.Suit) {
	if r.Trump != nil {
		return
	}
	r.Trump = &s
	r.Holdings = ResolveTrumpHoldings(r.OriginalHands, s)
}
