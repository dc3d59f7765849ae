// internal/game/events.go
package game

import "github.com/jason-s-yu/pitch/internal/models"

// GameEventType is an enum-like type for broadcasting game actions.
type GameEventType string

const (
	EventGameNew       GameEventType = "game_new"
	EventRoundDealt    GameEventType = "round_dealt"
	EventBidPlaced     GameEventType = "bid_placed"
	EventAuctionClosed GameEventType = "auction_closed"
	EventTrumpSet      GameEventType = "trump_set"
	EventCardPlayed    GameEventType = "card_played"
	EventTrickWon      GameEventType = "trick_won"
	EventRoundSettled  GameEventType = "round_settled"
	EventGameOver      GameEventType = "game_over"
	EventGameReset     GameEventType = "game_reset"

	// Sent only to a single connection.
	EventPrivateSyncState GameEventType = "private_sync_state"
	EventPrivateRejected  GameEventType = "private_action_rejected"
)

// GameEvent holds data about an event that can be broadcast to the clients in a consistent format.
// State is the full snapshot; transports narrow it per viewer with Snapshot.ForSeat.
type GameEvent struct {
	Type       GameEventType `json:"type"`
	Generation uint64        `json:"generation"`
	Seat       *int          `json:"seat,omitempty"`
	Amount     *int          `json:"amount,omitempty"`
	Card       *models.Card  `json:"card,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *Snapshot `json:"state,omitempty"`
}

func intPtr(v int) *int { return &v }
