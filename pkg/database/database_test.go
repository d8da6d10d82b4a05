package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewPool_Unreachable(t *testing.T) {
	log := logger.New(&config.Config{LogLevel: "error"})
	_, err := NewPool(context.Background(), "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", log)
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
}

// Integration tests, skipped unless DATABASE_URL is set.
func TestWithTx_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration tests")
	}
	ctx := context.Background()
	d, err := NewPool(ctx, url, logger.New(&config.Config{LogLevel: "error"}))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer d.Close() //nolint:errcheck

	if _, err := d.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tx_probe (id int)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { _, _ = d.DB().ExecContext(ctx, `DROP TABLE tx_probe`) })

	count := func(id int) int {
		var n int
		if err := d.DB().QueryRowContext(ctx, `SELECT count(*) FROM tx_probe WHERE id = $1`, id).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := d.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO tx_probe VALUES (1)`); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if n := count(1); n != 0 {
			t.Errorf("expected rolled back row, found %d", n)
		}
	})

	t.Run("commits on success", func(t *testing.T) {
		err := d.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO tx_probe VALUES (2)`)
			return err
		})
		if err != nil {
			t.Fatalf("with tx: %v", err)
		}
		if n := count(2); n != 1 {
			t.Errorf("expected committed row, found %d", n)
		}
	})
}
