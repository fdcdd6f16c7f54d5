package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrKitNotFound     = errors.New("kit not found")
	ErrItemNotFound    = errors.New("cart item not found")
)

type Repository interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	AddItem(ctx context.Context, userID, kitID int64, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, kitID int64) error
}

// TxRepository holds the operations that run inside a checkout transaction.
type TxRepository interface {
	LockCartWithTx(ctx context.Context, tx pgx.Tx, userID int64) (cartID int64, found bool, err error)
	LinesWithTx(ctx context.Context, tx pgx.Tx, cartID int64) ([]inventory.Line, error)
	ClearWithTx(ctx context.Context, tx pgx.Tx, cartID int64) error
}

type PostgresRepository struct {
	pool db.Pool
}

func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetCart returns nil without an error when the user has never added anything.
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	var c Cart
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ci.kit_id, k.name, k.price, ci.quantity, ci.added_at
		FROM cart_items ci
		JOIN kits k ON k.id = ci.kit_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.kit_id
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	c.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.KitID, &it.KitName, &it.Price, &it.Quantity, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	c.recalculate()
	return &c, nil
}

// AddItem creates the cart on first use. Adding a kit that is already in the
// cart increases its quantity instead of adding a second line.
func (r *PostgresRepository) AddItem(ctx context.Context, userID, kitID int64, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cartID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id
	`, userID).Scan(&cartID)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, kit_id, quantity, added_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (cart_id, kit_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, cartID, kitID, quantity)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrKitNotFound
		}
		return nil, fmt.Errorf("upsert cart_item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return r.GetCart(ctx, userID)
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, userID, kitID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.kit_id = $2
	`, userID, kitID)
	if err != nil {
		return fmt.Errorf("delete cart_item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// LockCartWithTx locks the user's cart row, serialising checkouts and payment
// reconciliations of the same user.
func (r *PostgresRepository) LockCartWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, bool, error) {
	var cartID int64
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lock cart: %w", err)
	}
	return cartID, true, nil
}

func (r *PostgresRepository) LinesWithTx(ctx context.Context, tx pgx.Tx, cartID int64) ([]inventory.Line, error) {
	rows, err := tx.Query(ctx, `SELECT kit_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY kit_id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	var lines []inventory.Line
	for rows.Next() {
		var ln inventory.Line
		if err := rows.Scan(&ln.KitID, &ln.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func (r *PostgresRepository) ClearWithTx(ctx context.Context, tx pgx.Tx, cartID int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
