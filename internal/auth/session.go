// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying seat tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpiry is how long a seat token stays valid; 0 means no exp claim.
	tokenExpiry time.Duration
)

// ErrInvalidToken is wrapped by every AuthenticateSeat failure.
var ErrInvalidToken = errors.New("invalid seat token")

// SeatClaims binds a bearer to one seat of one game.
type SeatClaims struct {
	Seat int `json:"seat"`
	jwt.RegisteredClaims
}

// Init generates a fresh ed25519 key pair at runtime. Tokens do not survive a restart,
// and neither do the games they point at.
func Init(expiry time.Duration) error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	tokenExpiry = expiry
	return nil
}

// CreateSeatToken issues a signed token with "sub" = gameID and the seat claim.
func CreateSeatToken(gameID uuid.UUID, seat int) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth not initialised")
	}
	claims := SeatClaims{
		Seat: seat,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  gameID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if tokenExpiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(tokenExpiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateSeat verifies a token and returns the game and seat it grants.
func AuthenticateSeat(tokenString string) (uuid.UUID, int, error) {
	var claims SeatClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, -1, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, -1, ErrInvalidToken
	}

	gameID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, -1, fmt.Errorf("%w: bad subject: %v", ErrInvalidToken, err)
	}
	if claims.Seat < 0 || claims.Seat > 3 {
		return uuid.Nil, -1, fmt.Errorf("%w: seat %d", ErrInvalidToken, claims.Seat)
	}
	return gameID, claims.Seat, nil
}
