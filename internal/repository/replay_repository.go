package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

type ReplayRepository interface {
	Save(ctx context.Context, result *models.ReplayResult) error
	GetByID(ctx context.Context, id string) (*models.ReplayResult, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS replays (
	id          UUID PRIMARY KEY,
	event_count INTEGER NOT NULL,
	rejected    INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS replay_balances (
	replay_id UUID NOT NULL REFERENCES replays (id) ON DELETE CASCADE,
	client    INTEGER NOT NULL,
	available NUMERIC NOT NULL,
	held      NUMERIC NOT NULL,
	total     NUMERIC NOT NULL,
	locked    BOOLEAN NOT NULL,
	PRIMARY KEY (replay_id, client)
);`

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

type PostgresReplayRepository struct {
	db *sql.DB
}

func NewReplayRepository(db *sql.DB) *PostgresReplayRepository {
	return &PostgresReplayRepository{db: db}
}

// EnsureSchema creates the replay tables if they do not exist yet.
func (r *PostgresReplayRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create replay schema: %w", err)
	}
	return nil
}

// Save stores the replay header and its account balances in one db transaction.
// Balances are streamed with COPY.
func (r *PostgresReplayRepository) Save(ctx context.Context, result *models.ReplayResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure rollback on error
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO replays (id, event_count, rejected, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err = tx.ExecContext(ctx, query, result.ID, result.Events, len(result.Rejected), result.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return fmt.Errorf("replay %s already stored: %w", result.ID, err)
		}
		return fmt.Errorf("failed to create replay: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("replay_balances",
		"replay_id", "client", "available", "held", "total", "locked"))
	if err != nil {
		return fmt.Errorf("failed to prepare balance copy: %w", err)
	}

	for _, b := range result.Accounts {
		_, err := stmt.ExecContext(ctx, result.ID, int(b.Client), b.Available, b.Held, b.Total, b.Locked)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy balance for client %d: %w", b.Client, err)
		}
	}

	// An Exec without arguments flushes the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush balance copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close balance copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replay: %w", err)
	}

	// Nullify tx to avoid rollback in defer
	tx = nil
	return nil
}

// GetByID loads a stored replay with its balances ordered by client.
// Activity and rejections are not persisted.
func (r *PostgresReplayRepository) GetByID(ctx context.Context, id string) (*models.ReplayResult, error) {
	query := `SELECT id, event_count, created_at FROM replays WHERE id = $1`

	result := &models.ReplayResult{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&result.ID, &result.Events, &result.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrReplayNotFound
		}
		return nil, fmt.Errorf("failed to get replay by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT client, available, held, total, locked
		FROM replay_balances
		WHERE replay_id = $1
		ORDER BY client ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get replay balances: %w", err)
	}
	defer rows.Close()

	result.Accounts = []models.AccountBalance{}
	for rows.Next() {
		var (
			client                 int
			available, held, total decimal.Decimal
			locked                 bool
		)
		if err := rows.Scan(&client, &available, &held, &total, &locked); err != nil {
			return nil, fmt.Errorf("failed to scan replay balance: %w", err)
		}
		result.Accounts = append(result.Accounts, models.AccountBalance{
			Client:    models.ClientID(client),
			Available: available,
			Held:      held,
			Total:     total,
			Locked:    locked,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over replay balances: %w", err)
	}
	return result, nil
}
