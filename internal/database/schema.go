package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	winner     SMALLINT,
	score_0    INTEGER NOT NULL DEFAULT 0,
	score_1    INTEGER NOT NULL DEFAULT 0,
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS game_rounds (
	game_id      UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	round_number INTEGER NOT NULL,
	dealer       SMALLINT NOT NULL,
	bid_winner   SMALLINT NOT NULL,
	bid_amount   SMALLINT NOT NULL,
	stuck        BOOLEAN NOT NULL,
	trump        TEXT,
	bid_made     BOOLEAN NOT NULL,
	delta_0      INTEGER NOT NULL,
	delta_1      INTEGER NOT NULL,
	detail       JSONB NOT NULL,
	PRIMARY KEY (game_id, round_number)
);

CREATE TABLE IF NOT EXISTS pitch_actions (
	game_id        UUID NOT NULL,
	action_index   INTEGER NOT NULL,
	generation     BIGINT NOT NULL,
	seat           SMALLINT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// EnsureSchema creates the archive tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
