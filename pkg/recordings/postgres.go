package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/transcript"
)

const uniqueViolationCode = "23505"

// PostgresStore is the pgx-backed Store implementation. The transcript is
// stored as a JSONB column so the whole sequence is replaced atomically in a
// single row update.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger logging.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With(logging.F("component", "recordings_store")),
	}
}

// Migrate creates the recordings table if it does not exist. Called once on
// startup; idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS recordings (
			id             TEXT PRIMARY KEY,
			status         TEXT NOT NULL,
			transcript     JSONB,
			failure_reason TEXT,
			event_id       TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_recordings_event_id ON recordings (event_id) WHERE event_id IS NOT NULL;
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrating recordings table: %w", err)
	}
	return nil
}

// Insert creates a new tracking record.
func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	const query = `
		INSERT INTO recordings (id, status, event_id, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW(), NOW())
	`

	if _, err := s.pool.Exec(ctx, query, rec.ID, string(rec.Status), rec.EventID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("record %s: %w", rec.ID, mmerrors.ErrAlreadyExists)
		}
		s.logger.Error("Failed to insert record", logging.Err(err), logging.F("session_id", rec.ID))
		return fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}

	s.logger.Debug("Record created",
		logging.F("session_id", rec.ID),
		logging.F("status", string(rec.Status)))
	return nil
}

// UpdateFields applies a partial update in a single statement so the write is
// atomic per document.
func (s *PostgresStore) UpdateFields(ctx context.Context, id string, update Update) error {
	const query = `
		UPDATE recordings SET
			status         = COALESCE($2, status),
			transcript     = COALESCE($3, transcript),
			failure_reason = COALESCE($4, failure_reason),
			updated_at     = NOW()
		WHERE id = $1
	`

	var status *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}

	var transcriptJSON []byte
	if update.Transcript != nil {
		encoded, err := json.Marshal(*update.Transcript)
		if err != nil {
			return fmt.Errorf("encoding transcript for %s: %w", id, err)
		}
		transcriptJSON = encoded
	}

	tag, err := s.pool.Exec(ctx, query, id, status, transcriptJSON, update.FailureReason)
	if err != nil {
		s.logger.Error("Failed to update record", logging.Err(err), logging.F("session_id", id))
		return fmt.Errorf("updating record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, mmerrors.ErrNotFound)
	}
	return nil
}

// Find returns the record for a session id.
func (s *PostgresStore) Find(ctx context.Context, id string) (*Record, error) {
	const query = `
		SELECT id, status, transcript, failure_reason, event_id, created_at, updated_at
		FROM recordings WHERE id = $1
	`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, mmerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("finding record %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM recordings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, mmerrors.ErrNotFound)
	}
	return nil
}

// DeleteByEvent removes all records associated with a calendar event.
func (s *PostgresStore) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	if eventID == "" {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM recordings WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("deleting records for event %s: %w", eventID, err)
	}
	return int(tag.RowsAffected()), nil
}

// List returns all records, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*Record, error) {
	const query = `
		SELECT id, status, transcript, failure_reason, event_id, created_at, updated_at
		FROM recordings ORDER BY created_at DESC, id DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec            Record
		status         string
		transcriptJSON []byte
		failureReason  *string
		eventID        *string
	)

	if err := row.Scan(&rec.ID, &status, &transcriptJSON, &failureReason, &eventID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	rec.Status = Status(status)
	if failureReason != nil {
		rec.FailureReason = *failureReason
	}
	if eventID != nil {
		rec.EventID = *eventID
	}
	if len(transcriptJSON) > 0 {
		var segments []transcript.Segment
		if err := json.Unmarshal(transcriptJSON, &segments); err != nil {
			return nil, fmt.Errorf("decoding transcript for %s: %w", rec.ID, err)
		}
		rec.Transcript = segments
	}
	return &rec, nil
}
