// Package dedup records which payment sessions have already been turned into
// orders.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
)

// ProcessedSession is one ledger row.
type ProcessedSession struct {
	SessionID string
	OrderID   int64
	UserID    int64
	Amount    decimal.Decimal
}

// Repository is the processed-payment ledger. Both methods run inside the
// reconciling transaction so the ledger row commits together with the order.
type Repository interface {
	FindWithTx(ctx context.Context, tx pgx.Tx, sessionID string) (orderID int64, found bool, err error)
	ClaimWithTx(ctx context.Context, tx pgx.Tx, s ProcessedSession) (bool, error)
}

type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

func (r *PostgresRepository) FindWithTx(ctx context.Context, tx pgx.Tx, sessionID string) (int64, bool, error) {
	var orderID int64
	err := tx.QueryRow(ctx, `
		SELECT order_id
		FROM processed_payment_sessions
		WHERE session_id = $1
	`, sessionID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select processed session: %w", err)
	}
	return orderID, true, nil
}

// ClaimWithTx inserts the ledger row. It reports false when another
// transaction already recorded the session.
func (r *PostgresRepository) ClaimWithTx(ctx context.Context, tx pgx.Tx, s ProcessedSession) (bool, error) {
	var claimed string
	err := tx.QueryRow(ctx, `
		INSERT INTO processed_payment_sessions (session_id, order_id, user_id, amount, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (session_id) DO NOTHING
		RETURNING session_id
	`, s.SessionID, s.OrderID, s.UserID, s.Amount).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert processed session: %w", err)
	}
	return true, nil
}
