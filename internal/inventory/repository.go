package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
)

var (
	ErrNotFound = errors.New("kit not found")
	// ErrStockConflict is returned when a conditional decrement matched no row,
	// i.e. the kit no longer has enough units.
	ErrStockConflict = errors.New("stock conflict")
)

type Repository interface {
	GetStock(ctx context.Context, kitID int64) (StockItem, error)
}

type TxRepository interface {
	LockWithTx(ctx context.Context, tx pgx.Tx, kitIDs []int64) (map[int64]Kit, error)
	DecrementWithTx(ctx context.Context, tx pgx.Tx, lines []Line) error
}

type PostgresRepository struct {
	pool db.Querier
}

func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetStock(ctx context.Context, kitID int64) (StockItem, error) {
	var item StockItem
	row := r.pool.QueryRow(ctx, `SELECT id, stock_quantity FROM kits WHERE id=$1`, kitID)
	if err := row.Scan(&item.KitID, &item.StockQuantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

// LockWithTx loads and row-locks the given kits for the rest of the
// transaction. Rows are locked in id order so two checkouts touching the same
// kits cannot deadlock each other.
func (r *PostgresRepository) LockWithTx(ctx context.Context, tx pgx.Tx, kitIDs []int64) (map[int64]Kit, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, price, stock_quantity, course_id
		FROM kits
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, kitIDs)
	if err != nil {
		return nil, fmt.Errorf("lock kits: %w", err)
	}
	defer rows.Close()

	kits := make(map[int64]Kit, len(kitIDs))
	for rows.Next() {
		var k Kit
		if err := rows.Scan(&k.ID, &k.Name, &k.Price, &k.StockQuantity, &k.CourseID); err != nil {
			return nil, fmt.Errorf("scan kit: %w", err)
		}
		kits[k.ID] = k
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return kits, nil
}

// DecrementWithTx takes stock for every line with a conditional update, so the
// check and the write are a single statement.
func (r *PostgresRepository) DecrementWithTx(ctx context.Context, tx pgx.Tx, lines []Line) error {
	for _, line := range lines {
		tag, err := tx.Exec(ctx, `
			UPDATE kits
			SET stock_quantity = stock_quantity - $2, updated_at = now()
			WHERE id = $1 AND stock_quantity >= $2
		`, line.KitID, line.Quantity)
		if err != nil {
			return fmt.Errorf("decrement kit %d: %w", line.KitID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("decrement kit %d: %w", line.KitID, ErrStockConflict)
		}
	}
	return nil
}
