// internal/database/rounds.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/bingo/internal/models"
)

// InsertRoundActions persists a batch of round actions in one transaction.
func InsertRoundActions(ctx context.Context, pool *pgxpool.Pool, batch []models.RoundAction) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := insertRoundActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoundActionTx: %w", err)
			}
		}
		return nil
	})
}

// insertRoundActionTx inserts one action and upserts its round. Winner and
// exhaustion actions close the round.
func insertRoundActionTx(ctx context.Context, tx pgx.Tx, rec models.RoundAction) error {
	upsertRoundQ := `
		INSERT INTO bingo_rounds (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	at := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, upsertRoundQ, rec.RoundID, at); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if rec.ActorUserID != uuid.Nil {
		actor = &rec.ActorUserID
	}
	actionInsertQ := `
		INSERT INTO bingo_round_actions (
			round_id, action_index, session_id, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (round_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.RoundID, rec.ActionIndex, rec.SessionID, actor, rec.ActionType, payload, at,
	); err != nil {
		return err
	}

	switch rec.ActionType {
	case "round_winner":
		name, _ := rec.ActionPayload["username"].(string)
		card, _ := rec.ActionPayload["cardId"].(float64)
		if n, ok := rec.ActionPayload["cardId"].(int); ok {
			card = float64(n)
		}
		q := `
			UPDATE bingo_rounds
			SET status = 'completed', end_time = $2, winner_name = $3, winner_card_id = $4
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err = tx.Exec(ctx, q, rec.RoundID, at, name, int(card))
	case "all_numbers_called":
		q := `
			UPDATE bingo_rounds
			SET status = 'exhausted', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err = tx.Exec(ctx, q, rec.RoundID, at)
	}
	return err
}

// MarkRoundAbandoned closes a round that stopped producing actions.
func MarkRoundAbandoned(ctx context.Context, pool *pgxpool.Pool, roundID uuid.UUID) (bool, error) {
	q := `
		UPDATE bingo_rounds
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	tag, err := pool.Exec(ctx, q, roundID)
	if err != nil {
		return false, fmt.Errorf("failed to mark round %v abandoned: %w", roundID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RoundStatus returns the stored status of a round.
func RoundStatus(ctx context.Context, pool *pgxpool.Pool, roundID uuid.UUID) (string, error) {
	var status string
	err := pool.QueryRow(ctx, `SELECT status FROM bingo_rounds WHERE id = $1`, roundID).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// RoundStore adapts the round history functions to a pool.
type RoundStore struct {
	Pool *pgxpool.Pool
}

// NewRoundStore returns a store backed by pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{Pool: pool}
}

func (s *RoundStore) InsertRoundActions(ctx context.Context, batch []models.RoundAction) error {
	return InsertRoundActions(ctx, s.Pool, batch)
}

func (s *RoundStore) MarkRoundAbandoned(ctx context.Context, roundID uuid.UUID) (bool, error) {
	return MarkRoundAbandoned(ctx, s.Pool, roundID)
}
