// internal/database/wallet.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientFunds is returned by Debit when the balance cannot cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet keeps player balances in Postgres. Every change is written to
// wallet_transactions in the same transaction as the balance update.
type Wallet struct {
	Pool *pgxpool.Pool
}

// NewWallet returns a wallet backed by pool.
func NewWallet(pool *pgxpool.Pool) *Wallet {
	return &Wallet{Pool: pool}
}

// Debit takes a card stake from a user's balance.
func (w *Wallet) Debit(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	err := pgx.BeginTxFunc(ctx, w.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE wallets
			SET balance = balance - $2, updated_at = NOW()
			WHERE user_id = $1 AND balance >= $2
		`
		tag, err := tx.Exec(ctx, q, userID, amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientFunds
		}
		return insertTransaction(ctx, tx, userID, roundID, -amount, "stake")
	})
	if err != nil {
		return fmt.Errorf("debit %d from %v: %w", amount, userID, err)
	}
	return nil
}

// Credit adds a payout or refund to a user's balance, opening the wallet if needed.
func (w *Wallet) Credit(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	err := pgx.BeginTxFunc(ctx, w.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO wallets (user_id, balance)
			VALUES ($1, $2)
			ON CONFLICT (user_id)
			DO UPDATE SET balance = wallets.balance + $2, updated_at = NOW()
		`
		if _, err := tx.Exec(ctx, q, userID, amount); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, userID, roundID, amount, "credit")
	})
	if err != nil {
		return fmt.Errorf("credit %d to %v: %w", amount, userID, err)
	}
	return nil
}

// Balance returns a user's balance. Users without a wallet have zero.
func (w *Wallet) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := w.Pool.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, userID, roundID uuid.UUID, amount int64, kind string) error {
	q := `
		INSERT INTO wallet_transactions (user_id, round_id, amount, kind)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.Exec(ctx, q, userID, roundID, amount, kind)
	return err
}
