// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StoreInitialGameState upserts the games row with the snapshot taken right
// after the deal, so any finished game can be replayed from its starting
// position.
func StoreInitialGameState(ctx context.Context, gameID uuid.UUID, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal initial snapshot: %w", err)
	}
	q := `
		INSERT INTO games (id, status, initial_state, start_time)
		VALUES ($1, 'in_progress', $2, NOW())
		ON CONFLICT (id)
		DO UPDATE SET initial_state = EXCLUDED.initial_state, status = 'in_progress'
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, gameID, data)
		return e
	})
}

// StoreFinalGameState writes the end-of-game snapshot onto the games row.
func StoreFinalGameState(ctx context.Context, gameID uuid.UUID, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal final snapshot: %w", err)
	}
	q := `UPDATE games SET final_state = $1 WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, data, gameID)
		return e
	})
}

// SeatResult ties one seat of a finished game to the account that played it.
// UserID is Nil for AI seats, which are recorded in game_results but never
// touch a user row.
type SeatResult struct {
	Seat     int
	UserID   uuid.UUID
	Survived bool
	Won      bool
}

// RecordGameResults marks the game completed, stores a result row per seat
// and bumps the per-user win counters.
func RecordGameResults(ctx context.Context, gameID uuid.UUID, results []SeatResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		finishQ := `
			INSERT INTO games (id, status, end_time)
			VALUES ($1, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, e := tx.Exec(ctx, finishQ, gameID); e != nil {
			return e
		}

		resultQ := `
			INSERT INTO game_results (game_id, seat, user_id, survived, did_win)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (game_id, seat)
			DO UPDATE SET user_id=$3, survived=$4, did_win=$5
		`
		userQ := `UPDATE users SET games_played = games_played + 1, games_won = games_won + $1 WHERE id = $2`

		for _, r := range results {
			var userID interface{}
			if r.UserID != uuid.Nil {
				userID = r.UserID
			}
			if _, e := tx.Exec(ctx, resultQ, gameID, r.Seat, userID, r.Survived, r.Won); e != nil {
				return e
			}
			if r.UserID == uuid.Nil {
				continue
			}
			won := 0
			if r.Won {
				won = 1
			}
			if _, e := tx.Exec(ctx, userQ, won, r.UserID); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record game results: %w", err)
	}

	log.Printf("recorded results for game %s (%d seats)", gameID, len(results))
	return nil
}
