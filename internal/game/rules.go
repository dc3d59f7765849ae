// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// HouseRules defines the tunable parts of a game.
type HouseRules struct {
	WinningScore   int   `json:"winningScore"`   // cumulative team score that ends the game
	HandSize       int   `json:"handSize"`       // cards dealt to each seat per round
	StuckDealerBid int   `json:"stuckDealerBid"` // bid forced on the dealer when everyone passes
	ThinkDelayMs   int   `json:"thinkDelayMs"`   // pause before a bot's move is applied
	HumanSeats     []int `json:"humanSeats"`     // seats driven by clients; the rest use the policy provider
}

// DefaultHouseRules returns the standard rules with seat 0 as the only human.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		WinningScore:   11,
		HandSize:       DefaultHandSize,
		StuckDealerBid: 2,
		HumanSeats:     []int{0},
	}
}

// ThinkDelay is ThinkDelayMs as a duration.
func (rules HouseRules) ThinkDelay() time.Duration {
	return time.Duration(rules.ThinkDelayMs) * time.Millisecond
}

// IsHuman reports whether seat is listed in HumanSeats.
func (rules HouseRules) IsHuman(seat int) bool {
	for _, s := range rules.HumanSeats {
		if s == seat {
			return true
		}
	}
	return false
}

// Validate checks the rules are playable.
func (rules HouseRules) Validate() error {
	if rules.WinningScore <= 0 {
		return fmt.Errorf("winningScore must be positive")
	}
	if rules.HandSize <= 0 || rules.HandSize*NumSeats > 52 {
		return fmt.Errorf("handSize must be between 1 and %d", 52/NumSeats)
	}
	if BidActionIndex(rules.StuckDealerBid) <= 0 {
		return fmt.Errorf("stuckDealerBid must be one of %v", BidActions[1:])
	}
	if rules.ThinkDelayMs < 0 {
		return fmt.Errorf("thinkDelayMs must be non-negative")
	}
	seen := map[int]bool{}
	for _, s := range rules.HumanSeats {
		if !validSeat(s) {
			return fmt.Errorf("humanSeats: %w: %d", ErrUnknownSeat, s)
		}
		if seen[s] {
			return fmt.Errorf("humanSeats: seat %d listed twice", s)
		}
		seen[s] = true
	}
	return nil
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	toInt := func(key string, val interface{}) (int, error) {
		// JSON numbers decode as float64
		switch v := val.(type) {
		case float64:
			return int(v), nil
		case int:
			return v, nil
		default:
			return 0, fmt.Errorf("invalid type for %s", key)
		}
	}

	assignInt := func(field *int, key string, minVal int) error {
		if val, exists := newRules[key]; exists && val != nil {
			n, err := toInt(key, val)
			if err != nil {
				return err
			}
			if n < minVal {
				return fmt.Errorf("%s must be at least %d", key, minVal)
			}
			*field = n
		}
		return nil
	}

	next := *rules
	next.HumanSeats = append([]int(nil), rules.HumanSeats...)

	if err := assignInt(&next.WinningScore, "winningScore", 1); err != nil {
		return err
	}
	if err := assignInt(&next.HandSize, "handSize", 1); err != nil {
		return err
	}
	if err := assignInt(&next.StuckDealerBid, "stuckDealerBid", 2); err != nil {
		return err
	}
	if err := assignInt(&next.ThinkDelayMs, "thinkDelayMs", 0); err != nil {
		return err
	}

	if val, exists := newRules["humanSeats"]; exists && val != nil {
		list, ok := val.([]interface{})
		if !ok {
			return fmt.Errorf("invalid type for humanSeats")
		}
		seats := make([]int, 0, len(list))
		for _, item := range list {
			n, err := toInt("humanSeats", item)
			if err != nil {
				return err
			}
			seats = append(seats, n)
		}
		next.HumanSeats = seats
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*rules = next
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct, starting from current.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	houseRules.HumanSeats = append([]int(nil), current.HumanSeats...)
	err := houseRules.Update(rules)
	return houseRules, err
}
