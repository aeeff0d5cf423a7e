// Package journal records compile jobs in Postgres.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrIdempotencyKeyAlreadyUsed = errors.New("idempotency key already used")
)

const idempotencyKeyConstraint = "compile_jobs_idempotency_key_key"

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Job struct {
	ID             uuid.UUID
	IdempotencyKey uuid.UUID
	SourcePath     string
	Target         string
	Dialect        string
	Status         Status
	Command        string // empty when no compiler ran
	ExitCode       *int
	Error          string
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Database struct {
	db Querier // required
}

func NewDatabase(db Querier) *Database {
	return &Database{db: db}
}

type CreateJobParams struct {
	IdempotencyKey uuid.UUID // required
	SourcePath     string    // required
	Target         string    // required
	Dialect        string    // required
}

// CreateJob inserts a running job.
// It returns ErrIdempotencyKeyAlreadyUsed when the key was seen before.
func (d *Database) CreateJob(ctx context.Context, params *CreateJobParams) (*Job, error) {
	query := `
		INSERT INTO compile_jobs (idempotency_key, source_path, target, dialect, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + jobColumns
	args := []any{params.IdempotencyKey, params.SourcePath, params.Target, params.Dialect, string(StatusRunning)}

	rows, _ := d.db.Query(ctx, query, args...)
	j, err := pgx.CollectExactlyOneRow(rows, rowToJob)
	if err != nil {
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) && pgErr.ConstraintName == idempotencyKeyConstraint {
			return nil, ErrIdempotencyKeyAlreadyUsed
		}
		return nil, fmt.Errorf("journal.Database: create job: %w", err)
	}

	return j, nil
}

type FinishJobParams struct {
	ID       uuid.UUID // required
	Status   Status    // required
	Command  string
	ExitCode *int
	Error    string
}

// FinishJob sets the final status of a running job.
// It returns ErrNotFound when no running job has the ID.
func (d *Database) FinishJob(ctx context.Context, params *FinishJobParams) (*Job, error) {
	if params.Status != StatusSucceeded && params.Status != StatusFailed {
		return nil, fmt.Errorf("journal.Database: finish job: invalid status %q", params.Status)
	}

	query := `
		UPDATE compile_jobs
		SET status = $2, command = $3, exit_code = $4, error = $5, finished_at = now()
		WHERE id = $1 AND status = 'running'
		RETURNING ` + jobColumns
	args := []any{params.ID, string(params.Status), nullString(params.Command), params.ExitCode, nullString(params.Error)}

	rows, _ := d.db.Query(ctx, query, args...)
	j, err := pgx.CollectExactlyOneRow(rows, rowToJob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("journal.Database: finish job: %w", err)
	}

	return j, nil
}

type GetJobParams struct {
	ID uuid.UUID // required
}

func (d *Database) GetJob(ctx context.Context, params *GetJobParams) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM compile_jobs WHERE id = $1`
	args := []any{params.ID}

	rows, _ := d.db.Query(ctx, query, args...)
	j, err := pgx.CollectExactlyOneRow(rows, rowToJob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("journal.Database: get job: %w", err)
	}

	return j, nil
}

type GetJobByIdempotencyKeyParams struct {
	IdempotencyKey uuid.UUID // required
}

func (d *Database) GetJobByIdempotencyKey(ctx context.Context, params *GetJobByIdempotencyKeyParams) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM compile_jobs WHERE idempotency_key = $1`
	args := []any{params.IdempotencyKey}

	rows, _ := d.db.Query(ctx, query, args...)
	j, err := pgx.CollectExactlyOneRow(rows, rowToJob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("journal.Database: get job by idempotency key: %w", err)
	}

	return j, nil
}

const jobColumns = `
	id, idempotency_key,
	source_path, target, dialect,
	status, command, exit_code, error,
	created_at, finished_at
`

type row struct {
	ID             uuid.UUID  `db:"id"`
	IdempotencyKey uuid.UUID  `db:"idempotency_key"`
	SourcePath     string     `db:"source_path"`
	Target         string     `db:"target"`
	Dialect        string     `db:"dialect"`
	Status         string     `db:"status"`
	Command        *string    `db:"command"`
	ExitCode       *int       `db:"exit_code"`
	Error          *string    `db:"error"`
	CreatedAt      time.Time  `db:"created_at"`
	FinishedAt     *time.Time `db:"finished_at"`
}

func rowToJob(collectableRow pgx.CollectableRow) (*Job, error) {
	r, err := pgx.RowToStructByName[row](collectableRow)
	if err != nil {
		return nil, err
	}

	j := &Job{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		SourcePath:     r.SourcePath,
		Target:         r.Target,
		Dialect:        r.Dialect,
		Status:         Status(r.Status),
		ExitCode:       r.ExitCode,
		CreatedAt:      r.CreatedAt,
		FinishedAt:     r.FinishedAt,
	}
	if r.Command != nil {
		j.Command = *r.Command
	}
	if r.Error != nil {
		j.Error = *r.Error
	}
	return j, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
