// internal/game/errors.go
package game

import "errors"

// Rejection kinds. Every rejected action leaves the game untouched.
var (
	ErrWrongPhase     = errors.New("action not valid in current phase")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalBid     = errors.New("illegal bid")
	ErrIllegalCard    = errors.New("illegal card")
	ErrStaleResponse  = errors.New("stale policy response")
	ErrUnknownSeat    = errors.New("unknown seat")
	ErrHumanSeatsOnly = errors.New("seat is not controlled by a human")
)

// RejectionReason maps an action error to the short reason code sent to clients.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrIllegalBid):
		return "illegal_bid"
	case errors.Is(err, ErrIllegalCard):
		return "illegal_card"
	case errors.Is(err, ErrStaleResponse):
		return "stale_response"
	case errors.Is(err, ErrUnknownSeat):
		return "unknown_seat"
	case errors.Is(err, ErrHumanSeatsOnly):
		return "not_human_seat"
	default:
		return "internal"
	}
}
