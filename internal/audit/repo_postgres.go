package audit

import (
	"context"
	"database/sql"
	"fmt"

	"crm-relay/pkg/utils"
)

// PostgresRepo persists the delivery log. Schema:
//
//	CREATE TABLE IF NOT EXISTS webhook_deliveries (
//	    id         uuid PRIMARY KEY,
//	    request_id text,
//	    source     text NOT NULL,
//	    outcome    text NOT NULL,
//	    step       text,
//	    error      text,
//	    detail     text,
//	    created_at timestamptz NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema creates the deliveries table and its read index when missing.
// Both statements run in one transaction so a failed boot never leaves the
// table without the index Recent depends on. The table is the only
// persistent surface of the process, so a migration tool is overkill.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS webhook_deliveries (
				id         uuid PRIMARY KEY,
				request_id text,
				source     text NOT NULL,
				outcome    text NOT NULL,
				step       text,
				error      text,
				detail     text,
				created_at timestamptz NOT NULL
			)`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS webhook_deliveries_created_at_idx
			ON webhook_deliveries (created_at DESC)`)
		return err
	})
	if err != nil {
		return fmt.Errorf("audit: ensuring schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, d Delivery) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries
			(id, request_id, source, outcome, step, error, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.RequestID, string(d.Source), string(d.Outcome), d.Step, d.Error, d.Detail, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: inserting delivery: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, source, outcome, step, error, detail, created_at
		FROM webhook_deliveries
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: querying deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var source, outcome string
		if err := rows.Scan(&d.ID, &d.RequestID, &source, &outcome, &d.Step, &d.Error, &d.Detail, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scanning delivery: %w", err)
		}
		d.Source = Source(source)
		d.Outcome = Outcome(outcome)
		out = append(out, d)
	}
	return out, rows.Err()
}
