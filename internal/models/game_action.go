package models

// GameAction captures a human action arriving from a transport.
type GameAction struct {
	ActionType string `json:"type"`
	Amount     int    `json:"amount,omitempty"`
	Card       *Card  `json:"card,omitempty"`
	Enabled    bool   `json:"enabled,omitempty"` // action_auto_play only
}

// Action types understood by the game router.
const (
	ActionNewGame  = "action_new_game"
	ActionBid      = "action_bid"
	ActionPlay     = "action_play"
	ActionReset    = "action_reset"
	ActionAutoPlay = "action_auto_play"
)
