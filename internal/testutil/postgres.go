package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
)

// StartPostgres launches a migrated Postgres container and returns a pool
// connected to it. Both are released with t.Cleanup.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "educomm"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/educomm?sslmode=disable", host, mappedPort.Port())
	require.NoError(t, db.RunMigrations(dsn, slog.New(slog.NewTextHandler(io.Discard, nil))))

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()

		pool.Close()
		_ = container.Terminate(cleanupCtx)
	})

	return pool
}

// Seeder inserts catalog and cart rows directly, bypassing the repositories
// under test.
type Seeder struct {
	t    *testing.T
	pool *pgxpool.Pool
}

func NewSeeder(t *testing.T, pool *pgxpool.Pool) *Seeder {
	return &Seeder{t: t, pool: pool}
}

func (s *Seeder) User(email string) int64 {
	s.t.Helper()
	var id int64
	err := s.pool.QueryRow(context.Background(),
		`INSERT INTO users (email) VALUES ($1) RETURNING id`, email).Scan(&id)
	require.NoError(s.t, err)
	return id
}

func (s *Seeder) Course(title string) int64 {
	s.t.Helper()
	var id int64
	err := s.pool.QueryRow(context.Background(),
		`INSERT INTO courses (title) VALUES ($1) RETURNING id`, title).Scan(&id)
	require.NoError(s.t, err)
	return id
}

// Kit creates a kit; courseID may be nil.
func (s *Seeder) Kit(name, price string, stock int, courseID *int64) int64 {
	s.t.Helper()
	var id int64
	err := s.pool.QueryRow(context.Background(),
		`INSERT INTO kits (name, price, stock_quantity, course_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, decimal.RequireFromString(price), stock, courseID).Scan(&id)
	require.NoError(s.t, err)
	return id
}

func (s *Seeder) SetPrice(kitID int64, price string) {
	s.t.Helper()
	_, err := s.pool.Exec(context.Background(),
		`UPDATE kits SET price = $2, updated_at = now() WHERE id = $1`, kitID, decimal.RequireFromString(price))
	require.NoError(s.t, err)
}

func (s *Seeder) Stock(kitID int64) int {
	s.t.Helper()
	var q int
	err := s.pool.QueryRow(context.Background(),
		`SELECT stock_quantity FROM kits WHERE id = $1`, kitID).Scan(&q)
	require.NoError(s.t, err)
	return q
}

// Count returns the number of rows in table. table must be a trusted literal.
func (s *Seeder) Count(table string) int {
	s.t.Helper()
	var n int
	err := s.pool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n)
	require.NoError(s.t, err)
	return n
}
