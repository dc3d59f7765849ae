// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/pitch/internal/cache"
)

// RoundRecord is one settled round as stored in game_rounds.
type RoundRecord struct {
	GameID      uuid.UUID
	RoundNumber int
	Dealer      int
	BidWinner   int
	BidAmount   int
	Stuck       bool
	Trump       string
	BidMade     bool
	Delta       [2]int
	Scores      [2]int
	Detail      interface{} // marshalled to JSONB
}

// Archive writes finished rounds, games and the historian's action log.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wraps a connected pool.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

const upsertGameQ = `
	INSERT INTO games (id, status, score_0, score_1)
	VALUES ($1, 'in_progress', $2, $3)
	ON CONFLICT (id)
	DO UPDATE SET score_0 = $2, score_1 = $3
`

// RecordRound stores a settled round and the running score in one transaction.
func (a *Archive) RecordRound(ctx context.Context, rec RoundRecord) error {
	detail, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("marshal round detail: %w", err)
	}
	err = pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, e := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.Scores[0], rec.Scores[1]); e != nil {
			return e
		}
		q := `
			INSERT INTO game_rounds (
				game_id, round_number, dealer, bid_winner, bid_amount, stuck,
				trump, bid_made, delta_0, delta_1, detail
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (game_id, round_number) DO NOTHING
		`
		_, e := tx.Exec(ctx, q,
			rec.GameID, rec.RoundNumber, rec.Dealer, rec.BidWinner, rec.BidAmount, rec.Stuck,
			rec.Trump, rec.BidMade, rec.Delta[0], rec.Delta[1], detail,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx record round: %w", err)
	}
	return nil
}

// RecordGameEnd marks a game completed with its winning team and final scores.
func (a *Archive) RecordGameEnd(ctx context.Context, gameID uuid.UUID, winner int, scores [2]int) error {
	q := `
		INSERT INTO games (id, status, winner, score_0, score_1, end_time)
		VALUES ($1, 'completed', $2, $3, $4, NOW())
		ON CONFLICT (id)
		DO UPDATE SET status = 'completed', winner = $2, score_0 = $3, score_1 = $4, end_time = NOW()
	`
	if _, err := a.pool.Exec(ctx, q, gameID, winner, scores[0], scores[1]); err != nil {
		return fmt.Errorf("record game end: %w", err)
	}
	return nil
}

// InsertActions writes a historian batch in a single transaction. Records
// already stored (same game and index) are skipped.
func (a *Archive) InsertActions(ctx context.Context, batch []cache.GameActionRecord) error {
	return pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return err
			}
			q := `
				INSERT INTO pitch_actions (
					game_id, action_index, generation, seat, action_type, action_payload, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (game_id, action_index) DO NOTHING
			`
			_, err = tx.Exec(ctx, q,
				rec.GameID, rec.ActionIndex, int64(rec.Generation), rec.Seat, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp),
			)
			if err != nil {
				return fmt.Errorf("insert action %d of %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
}

// MarkAbandoned flags a game that stopped producing actions before it finished.
func (a *Archive) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		INSERT INTO games (id, status, end_time)
		VALUES ($1, 'abandoned', NOW())
		ON CONFLICT (id)
		DO UPDATE SET status = 'abandoned', end_time = NOW()
		WHERE games.status = 'in_progress'
	`
	if _, err := a.pool.Exec(ctx, q, gameID); err != nil {
		return fmt.Errorf("mark abandoned: %w", err)
	}
	return nil
}
