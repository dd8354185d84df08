package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/pagenook/notegraph/internal/model"
)

// StatusRepo is the shared, externally pollable per-user build record.
// The idle->building transition is a conditional UPDATE so the
// one-build-per-user guarantee holds under concurrent triggers.
type StatusRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewStatusRepo(db *sql.DB) *StatusRepo {
	return &StatusRepo{db: db, now: time.Now}
}

// TryStart attempts the guarded transition to building. It returns the
// record after the attempt and whether this caller won the transition.
func (r *StatusRepo) TryStart(ctx context.Context, userID string) (*model.BuildStatus, bool, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO build_status (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return nil, false, err
	}
	now := r.now().UnixMilli()
	res, err := r.db.ExecContext(ctx, `
		UPDATE build_status
		SET status = 'building', started_at = $2, step = 'queued', step_details = '',
		    step_at = $2, last_error = '', error_at = 0
		WHERE user_id = $1 AND status <> 'building'
	`, userID, now)
	if err != nil {
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	record, err := r.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return record, affected > 0, nil
}

func (r *StatusRepo) Get(ctx context.Context, userID string) (*model.BuildStatus, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT status, started_at, step, step_details, step_at, last_error, error_at
		FROM build_status WHERE user_id = $1
	`, userID)
	record := &model.BuildStatus{UserID: userID}
	var status string
	err := row.Scan(&status, &record.StartedAt, &record.CurrentStep.Step,
		&record.CurrentStep.Details, &record.CurrentStep.Timestamp,
		&record.LastError, &record.ErrorAt)
	if err == sql.ErrNoRows {
		record.Status = model.BuildStateIdle
		return record, nil
	}
	if err != nil {
		return nil, err
	}
	record.Status = model.BuildState(status)
	return record, nil
}

// SetStep publishes a human-readable progress record for UI polling.
func (r *StatusRepo) SetStep(ctx context.Context, userID, step, details string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE build_status SET step = $2, step_details = $3, step_at = $4
		WHERE user_id = $1
	`, userID, step, details, r.now().UnixMilli())
	return err
}

func (r *StatusRepo) SetCompleted(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE build_status SET status = 'completed', step = 'completed', step_details = '', step_at = $2
		WHERE user_id = $1
	`, userID, r.now().UnixMilli())
	return err
}

// SetError records the failure verbatim and parks the record in error state.
func (r *StatusRepo) SetError(ctx context.Context, userID, message string) error {
	now := r.now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		UPDATE build_status SET status = 'error', last_error = $2, error_at = $3, step_at = $3
		WHERE user_id = $1
	`, userID, message, now)
	return err
}

// ResetStale flips building records with no progress since the cutoff to
// error so a crashed worker cannot wedge a user in building forever.
func (r *StatusRepo) ResetStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := r.now().UnixMilli()
	res, err := r.db.ExecContext(ctx, `
		UPDATE build_status SET status = 'error', last_error = 'build timed out', error_at = $2
		WHERE status = 'building' AND step_at < $1
	`, cutoff.UnixMilli(), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
