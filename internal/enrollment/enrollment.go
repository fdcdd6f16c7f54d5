package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
)

type Enrollment struct {
	ID          int64     `json:"enrollmentId"`
	UserID      int64     `json:"userId"`
	CourseID    int64     `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	EnrolledAt  time.Time `json:"enrolledAt"`
}

type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]Enrollment, error)
}

type TxRepository interface {
	EnsureWithTx(ctx context.Context, tx pgx.Tx, userID, courseID int64) (bool, error)
}

type PostgresRepository struct {
	pool db.Querier
}

func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureWithTx enrolls the user in the course unless already enrolled. The
// returned bool is true only when a new enrollment row was written.
func (r *PostgresRepository) EnsureWithTx(ctx context.Context, tx pgx.Tx, userID, courseID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO enrollments (user_id, course_id, enrolled_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, course_id) DO NOTHING
	`, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("insert enrollment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.user_id, e.course_id, c.title, e.enrolled_at
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at, e.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select enrollments: %w", err)
	}
	defer rows.Close()

	out := []Enrollment{}
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.CourseTitle, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
