// internal/game/bidding.go
package game

import "fmt"

// NumBidActions is the width of the bid action space.
const NumBidActions = 4

// BidActions maps a bid action index to the bid amount it represents.
// Index 0 is a pass.
var BidActions = [NumBidActions]int{0, 2, 3, 4}

// Pass is the bid amount of a pass.
const Pass = 0

// BidActionIndex returns the action index of a bid amount, or -1 if the
// amount is not a bid the game understands.
func BidActionIndex(amount int) int {
	for i, a := range BidActions {
		if a == amount {
			return i
		}
	}
	return -1
}

// LegalBids returns the mask of bid actions available to the seat on turn.
// Pass is always legal; a numeric bid must exceed the current high bid. Once
// the auction has closed no bid is legal.
func (r *Round) LegalBids() [NumBidActions]bool {
	var mask [NumBidActions]bool
	if r.AuctionClosed {
		return mask
	}
	mask[0] = true
	for i := 1; i < NumBidActions; i++ {
		mask[i] = BidActions[i] > r.BidAmount
	}
	return mask
}

// SubmitBid records a bid or pass for seat. The auction closes once the
// turn returns to the seat left of the dealer; if nobody bid, the dealer is
// stuck with the minimum bid.
func (r *Round) SubmitBid(seat, amount int) error {
	if !validSeat(seat) {
		return fmt.Errorf("seat %d: %w", seat, ErrUnknownSeat)
	}
	if r.AuctionClosed {
		return fmt.Errorf("bidding is closed: %w", ErrWrongPhase)
	}
	if seat != r.CurrentPlayer {
		return fmt.Errorf("seat %d bid, seat %d to act: %w", seat, r.CurrentPlayer, ErrNotYourTurn)
	}
	idx := BidActionIndex(amount)
	if idx < 0 {
		return fmt.Errorf("unknown bid amount %d: %w", amount, ErrIllegalBid)
	}
	if !r.LegalBids()[idx] {
		return fmt.Errorf("bid %d does not beat %d: %w", amount, r.BidAmount, ErrIllegalBid)
	}

	r.Bids = append(r.Bids, Bid{Seat: seat, Amount: amount})
	if amount > r.BidAmount {
		r.BidAmount = amount
		r.BidWinner = seat
	}
	r.CurrentPlayer = NextSeat(seat)
	if r.CurrentPlayer == NextSeat(r.Dealer) {
		r.closeAuction()
	}
	return nil
}

func (r *Round) closeAuction() {
	if r.BidWinner < 0 {
		r.BidWinner = r.Dealer
		r.BidAmount = r.StuckBid
		r.Stuck = true
	}
	r.AuctionClosed = true
	r.CurrentPlayer = r.BidWinner
}
