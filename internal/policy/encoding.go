// internal/policy/encoding.go
package policy

import "github.com/jason-s-yu/pitch/internal/models"

// Feature vector layout. Card blocks are indexed by models.Card.Index.
const (
	NumBidActions  = 4
	NumPlayActions = models.NumCards

	// hand(52) + seat one-hot(4)
	BiddingFeatureWidth = models.NumCards + 4

	// hand(52) + trump(4) + trick(52) + played(52) + bid winner(4) +
	// bid tier(4) + previous trick(52) + previous winner(4)
	PlayingFeatureWidth = 4*models.NumCards + 4*4
)

// BiddingView is what a bidder is allowed to see.
type BiddingView struct {
	Hand []models.Card
	Seat int
}

// PlayingView is what a player is allowed to see when choosing a card.
// Seats are -1 and pointers nil when not yet known.
type PlayingView struct {
	Hand       []models.Card
	Trump      *models.Suit
	Trick      []models.Card
	Played     []models.Card
	BidWinner  int
	BidAmount  int // 0 when unset
	PrevTrick  []models.Card
	PrevWinner int
}

func setCards(block []float32, cards []models.Card) {
	for _, c := range cards {
		block[c.Index()] = 1
	}
}

func setOneHot(block []float32, i int) {
	if i >= 0 && i < len(block) {
		block[i] = 1
	}
}

// EncodeBidding lays out a BiddingView as the bidding model input.
func EncodeBidding(v BiddingView) []float32 {
	f := make([]float32, BiddingFeatureWidth)
	setCards(f[:models.NumCards], v.Hand)
	setOneHot(f[models.NumCards:], v.Seat)
	return f
}

// bidTier maps a bid amount to its slot in the tier block. Slots 0..2 are
// bids of 2, 3 and 4; slot 3 means no bid is set.
func bidTier(amount int) int {
	if amount >= 2 && amount <= 4 {
		return amount - 2
	}
	return 3
}

// EncodePlaying lays out a PlayingView as the playing model input.
func EncodePlaying(v PlayingView) []float32 {
	f := make([]float32, PlayingFeatureWidth)
	off := 0
	block := func(n int) []float32 {
		b := f[off : off+n]
		off += n
		return b
	}

	setCards(block(models.NumCards), v.Hand)
	trump := block(models.NumSuits)
	if v.Trump != nil {
		setOneHot(trump, int(*v.Trump))
	}
	setCards(block(models.NumCards), v.Trick)
	setCards(block(models.NumCards), v.Played)
	setOneHot(block(4), v.BidWinner)
	setOneHot(block(4), bidTier(v.BidAmount))
	setCards(block(models.NumCards), v.PrevTrick)
	setOneHot(block(4), v.PrevWinner)
	return f
}
