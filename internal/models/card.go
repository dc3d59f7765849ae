// internal/models/card.go
package models

import (
	"fmt"
	"strings"
)

// Suit is one of the four card suits. The numeric order (C, D, H, S) is the
// order used by the card index codec.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// NumSuits is the number of suits in a standard deck.
const NumSuits = 4

var suitLetters = [NumSuits]string{"C", "D", "H", "S"}

func (s Suit) String() string {
	if s < Clubs || s > Spades {
		return "?"
	}
	return suitLetters[s]
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool { return s >= Clubs && s <= Spades }

// MarshalText encodes the suit as its letter.
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid suit %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts a single suit letter in either case.
func (s *Suit) UnmarshalText(b []byte) error {
	l := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, letter := range suitLetters {
		if l == letter {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("invalid suit %q", string(b))
}

// Rank is a card rank. Rank values are strictly ordered Two < Three < ... < Ace,
// which is the order used for trick comparisons.
type Rank int

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// NumRanks is the number of ranks per suit.
const NumRanks = 13

var rankLetters = [NumRanks]string{"2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K", "A"}

func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return rankLetters[r]
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool { return r >= Two && r <= Ace }

// GameValue returns the card-point value used for the "game" point:
// T=10, J=1, Q=2, K=3, A=4, everything else 0.
func (r Rank) GameValue() int {
	switch r {
	case Ten:
		return 10
	case Jack:
		return 1
	case Queen:
		return 2
	case King:
		return 3
	case Ace:
		return 4
	default:
		return 0
	}
}

// NumCards is the size of the full deck and of every card-indexed vector.
const NumCards = NumRanks * NumSuits

// Card is an immutable (rank, suit) pair.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// String formats the card as the two-character form used on the wire, e.g. "TH".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Index maps the card to 0..51 as rank*4 + suit.
func (c Card) Index() int {
	return int(c.Rank)*NumSuits + int(c.Suit)
}

// Valid reports whether both rank and suit are in range.
func (c Card) Valid() bool { return c.Rank.Valid() && c.Suit.Valid() }

// CardFromIndex is the inverse of Card.Index.
func CardFromIndex(i int) (Card, error) {
	if i < 0 || i >= NumCards {
		return Card{}, fmt.Errorf("card index %d out of range", i)
	}
	return Card{Rank: Rank(i / NumSuits), Suit: Suit(i % NumSuits)}, nil
}

// ParseCard parses the two-character form ("AS", "2c", "th").
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	r := -1
	for i, l := range rankLetters {
		if l[0] == s[0] {
			r = i
			break
		}
	}
	su := -1
	for i, l := range suitLetters {
		if l[0] == s[1] {
			su = i
			break
		}
	}
	if r < 0 || su < 0 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	return Card{Rank: Rank(r), Suit: Suit(su)}, nil
}

// MustParseCards parses a space separated list of cards and panics on error.
// Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// MarshalText encodes the card in its two-character form so JSON carries "AH"
// rather than a nested object.
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid card %d/%d", c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NewDeck returns the 52 distinct cards in index order.
func NewDeck() []Card {
	deck := make([]Card, 0, NumCards)
	for i := 0; i < NumCards; i++ {
		deck = append(deck, Card{Rank: Rank(i / NumSuits), Suit: Suit(i % NumSuits)})
	}
	return deck
}

// SuitOf returns the subset of cards having suit s, preserving order.
func SuitOf(cards []Card, s Suit) []Card {
	var out []Card
	for _, c := range cards {
		if c.Suit == s {
			out = append(out, c)
		}
	}
	return out
}

// HasSuit reports whether any card in cards has suit s.
func HasSuit(cards []Card, s Suit) bool {
	for _, c := range cards {
		if c.Suit == s {
			return true
		}
	}
	return false
}

// IndexOf returns the position of target in cards or -1.
func IndexOf(cards []Card, target Card) int {
	for i, c := range cards {
		if c == target {
			return i
		}
	}
	return -1
}
