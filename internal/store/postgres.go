package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
)

// PostgresStore is a Store backed by Postgres via pgx. Requests and their
// approver chains live in two tables; type-specific details are stored as
// JSONB. Mutations run in a transaction with the request row locked, which
// gives concurrent approve/reject calls on the same request a total order.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// schemaStatements create the tables the store needs. Idempotent, applied
// one statement at a time (pgx's extended protocol rejects multi-statement
// strings).
var schemaStatements = []string{`
CREATE TABLE IF NOT EXISTS deviation_requests (
    id              TEXT PRIMARY KEY,
    seq             BIGINT GENERATED ALWAYS AS IDENTITY,
    type            TEXT NOT NULL,
    status          TEXT NOT NULL,
    customer_name   TEXT NOT NULL,
    unit_number     TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_by_id   TEXT NOT NULL,
    created_by_name TEXT NOT NULL,
    created_by_role TEXT NOT NULL,
    current_level   INT  NOT NULL,
    details         JSONB,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS deviation_approvers (
    request_id  TEXT NOT NULL REFERENCES deviation_requests(id),
    position    INT  NOT NULL,
    approver_id TEXT NOT NULL,
    name        TEXT NOT NULL,
    role        TEXT NOT NULL,
    status      TEXT NOT NULL,
    comments    TEXT NOT NULL DEFAULT '',
    acted_at    TIMESTAMPTZ,
    PRIMARY KEY (request_id, position)
)`,
	`CREATE INDEX IF NOT EXISTS idx_deviation_requests_status ON deviation_requests(status)`,
	`CREATE INDEX IF NOT EXISTS idx_deviation_requests_type   ON deviation_requests(type)`,
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to connect to database")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the store's tables and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to ensure schema")
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Add inserts the request and its approver chain in one transaction.
func (s *PostgresStore) Add(ctx context.Context, req *deviation.Request) error {
	detailsJSON, err := marshalDetails(req.Details)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO deviation_requests
		    (id, type, status, customer_name, unit_number, description,
		     created_by_id, created_by_name, created_by_role,
		     current_level, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.Exec(ctx, query,
		req.ID,
		req.Type,
		req.Status,
		req.CustomerName,
		req.UnitNumber,
		req.Description,
		req.CreatedBy.ID,
		req.CreatedBy.Name,
		req.CreatedBy.Role,
		req.CurrentLevel,
		detailsJSON,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create deviation request")
	}

	if err := insertApprovers(ctx, tx, req.ID, req.Approvers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to commit deviation request")
	}
	return nil
}

// Get retrieves one request with its approver chain.
func (s *PostgresStore) Get(ctx context.Context, id string) (*deviation.Request, error) {
	req, err := s.getRequest(ctx, s.pool, id, false)
	if err != nil {
		return nil, err
	}
	req.Approvers, err = s.getApprovers(ctx, s.pool, id)
	return req, err
}

// List returns all requests, most-recent-first.
func (s *PostgresStore) List(ctx context.Context) ([]*deviation.Request, error) {
	return s.listWhere(ctx, "", nil)
}

// ListByStatus returns all requests with exactly the given status.
func (s *PostgresStore) ListByStatus(ctx context.Context, status deviation.Status) ([]*deviation.Request, error) {
	return s.listWhere(ctx, "WHERE r.status = $1", []any{string(status)})
}

// ListByType returns all requests with exactly the given type.
func (s *PostgresStore) ListByType(ctx context.Context, t deviation.Type) ([]*deviation.Request, error) {
	return s.listWhere(ctx, "WHERE r.type = $1", []any{string(t)})
}

// ListPendingApprovals returns requests whose current seat is still pending.
func (s *PostgresStore) ListPendingApprovals(ctx context.Context) ([]*deviation.Request, error) {
	where := `
		WHERE r.status IN ('pending', 'in_review')
		  AND EXISTS (
		      SELECT 1 FROM deviation_approvers a
		      WHERE a.request_id = r.id
		        AND a.position = r.current_level
		        AND a.status = 'pending'
		  )`
	return s.listWhere(ctx, where, nil)
}

// Mutate loads the request under a row lock, applies fn and writes the
// result back. Nothing is committed when fn fails.
func (s *PostgresStore) Mutate(ctx context.Context, id string, fn func(*deviation.Request) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	req, err := s.getRequest(ctx, tx, id, true)
	if err != nil {
		return err
	}
	req.Approvers, err = s.getApprovers(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := fn(req); err != nil {
		return err
	}

	detailsJSON, err := marshalDetails(req.Details)
	if err != nil {
		return err
	}

	update := `
		UPDATE deviation_requests
		SET status = $2, current_level = $3, details = $4, updated_at = $5
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, req.ID, req.Status, req.CurrentLevel, detailsJSON, req.UpdatedAt); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update deviation request")
	}

	// Approver rows are few per request; rewrite the chain wholesale.
	if _, err := tx.Exec(ctx, `DELETE FROM deviation_approvers WHERE request_id = $1`, req.ID); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to clear approver chain")
	}
	if err := insertApprovers(ctx, tx, req.ID, req.Approvers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to commit mutation")
	}
	return nil
}

// ── internal queries ──────────────────────────────────────────────────────────

func (s *PostgresStore) getRequest(ctx context.Context, q rowQuerier, id string, forUpdate bool) (*deviation.Request, error) {
	query := `
		SELECT id, type, status, customer_name, unit_number, description,
		       created_by_id, created_by_name, created_by_role,
		       current_level, details, created_at, updated_at
		FROM deviation_requests r
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	req, err := scanRequest(q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("deviation request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan deviation request")
	}
	return req, nil
}

func (s *PostgresStore) getApprovers(ctx context.Context, q rowQuerier, requestID string) ([]deviation.Approver, error) {
	query := `
		SELECT approver_id, name, role, status, comments, acted_at
		FROM deviation_approvers
		WHERE request_id = $1
		ORDER BY position ASC
	`
	rows, err := q.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approver chain")
	}
	defer rows.Close()

	var approvers []deviation.Approver
	for rows.Next() {
		var a deviation.Approver
		if err := rows.Scan(&a.ID, &a.Name, &a.Role, &a.Status, &a.Comments, &a.Timestamp); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approver")
		}
		approvers = append(approvers, a)
	}
	return approvers, rows.Err()
}

func (s *PostgresStore) listWhere(ctx context.Context, where string, args []any) ([]*deviation.Request, error) {
	query := `
		SELECT id, type, status, customer_name, unit_number, description,
		       created_by_id, created_by_name, created_by_role,
		       current_level, details, created_at, updated_at
		FROM deviation_requests r
		` + where + `
		ORDER BY r.seq DESC
	`
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list deviation requests")
	}
	defer rows.Close()

	var requests []*deviation.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan deviation request")
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list deviation requests")
	}

	for _, req := range requests {
		req.Approvers, err = s.getApprovers(ctx, s.pool, req.ID)
		if err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// ── scan / insert helpers ─────────────────────────────────────────────────────

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type requestScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row requestScanner) (*deviation.Request, error) {
	req := &deviation.Request{}
	var detailsJSON []byte

	err := row.Scan(
		&req.ID,
		&req.Type,
		&req.Status,
		&req.CustomerName,
		&req.UnitNumber,
		&req.Description,
		&req.CreatedBy.ID,
		&req.CreatedBy.Name,
		&req.CreatedBy.Role,
		&req.CurrentLevel,
		&detailsJSON,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(detailsJSON) > 0 {
		req.Details, err = deviation.DecodeDetails(req.Type, detailsJSON)
		if err != nil {
			return nil, err
		}
	}
	return req, nil
}

func insertApprovers(ctx context.Context, tx pgx.Tx, requestID string, approvers []deviation.Approver) error {
	query := `
		INSERT INTO deviation_approvers
		    (request_id, position, approver_id, name, role, status, comments, acted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, a := range approvers {
		_, err := tx.Exec(ctx, query,
			requestID,
			i+1,
			a.ID,
			a.Name,
			a.Role,
			a.Status,
			a.Comments,
			a.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to insert approver")
		}
	}
	return nil
}

func marshalDetails(d deviation.Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request details")
	}
	return data, nil
}
