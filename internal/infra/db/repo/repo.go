package repo

import (
	"context"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/interfaces"
	"github.com/formlock/formlock-backend/internal/infra/db"
	dbs "github.com/formlock/formlock-backend/pkg/db"

	"encoding/json"
)

type SubmissionRepo struct {
	factory *dbs.UOWFactory
}

func NewSubmissionRepo(factory *dbs.UOWFactory) *SubmissionRepo {
	return &SubmissionRepo{factory: factory}
}

const submissionColumns = `id, token, form_id, prefill_data, additional_data, created_by_user_id, expires_at,
		webhook_url, webhook_include_pdf, status, submission_data, created_at, started_at, submitted_at, locked_at`

func (r *SubmissionRepo) GetSubmissionByToken(ctx context.Context, token string) (*db.Submission, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	var s db.Submission
	query := "SELECT " + submissionColumns + " FROM formlock.submissions WHERE token = $1"
	err = tx.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.Token, &s.FormID, &s.PrefillData, &s.AdditionalData, &s.CreatedByUserID, &s.ExpiresAt,
		&s.WebhookURL, &s.WebhookIncludePDF, &s.Status, &s.SubmissionData, &s.CreatedAt, &s.StartedAt,
		&s.SubmittedAt, &s.LockedAt,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *SubmissionRepo) InsertSubmission(ctx context.Context, s *db.Submission) (uint64, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO formlock.submissions(token, form_id, prefill_data, additional_data, created_by_user_id,
			expires_at, webhook_url, webhook_include_pdf, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`
	err = tx.QueryRow(ctx, query,
		s.Token, s.FormID, s.PrefillData, s.AdditionalData, s.CreatedByUserID,
		s.ExpiresAt, s.WebhookURL, s.WebhookIncludePDF, s.Status, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		_ = uow.Rollback()
		return 0, err
	}

	if err = uow.Commit(); err != nil {
		return 0, err
	}
	return s.ID, nil
}

// MarkInProgress moves a pending submission to in_progress. Repeated
// calls while already in_progress are no-ops.
func (r *SubmissionRepo) MarkInProgress(ctx context.Context, token string, startedAt time.Time) error {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		"UPDATE formlock.submissions SET status = $1, started_at = $2 WHERE token = $3 AND status = $4",
		consts.SubmissionStatusInProgress, startedAt, token, consts.SubmissionStatusPending)
	if err != nil {
		_ = uow.Rollback()
		return err
	}

	return uow.Commit()
}

// LockSubmission atomically stores the submitted data and flips the
// status to locked. The status guard in the WHERE clause makes the
// transition exactly-once: a concurrent submit loses the race and sees
// zero affected rows.
func (r *SubmissionRepo) LockSubmission(ctx context.Context, token string, data json.RawMessage, now time.Time) (bool, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE formlock.submissions SET submission_data = $1, status = $2, submitted_at = $3, locked_at = $3
			WHERE token = $4 AND status <> $2`,
		data, consts.SubmissionStatusLocked, now, token)
	if err != nil {
		_ = uow.Rollback()
		return false, err
	}

	if err = uow.Commit(); err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SubmissionRepo) IsLocked(ctx context.Context, token string) (bool, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return false, err
	}
	defer uow.Rollback()

	var status consts.SubmissionStatus
	err = tx.QueryRow(ctx, "SELECT status FROM formlock.submissions WHERE token = $1", token).Scan(&status)
	if err != nil {
		return false, err
	}
	return status == consts.SubmissionStatusLocked, nil
}

type FormRepo struct {
	factory *dbs.UOWFactory
}

func NewFormRepo(factory *dbs.UOWFactory) *FormRepo {
	return &FormRepo{factory: factory}
}

func (r *FormRepo) GetFormByID(ctx context.Context, id uint64) (*db.Form, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	var f db.Form
	query := `SELECT id, title, description, status, theme, webhook_url, webhook_include_pdf, created_by,
			created_at, updated_at FROM formlock.forms WHERE id = $1`
	err = tx.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.Title, &f.Description, &f.Status, &f.Theme, &f.WebhookURL, &f.WebhookIncludePDF,
		&f.CreatedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

type EntranceRepo struct {
	factory *dbs.UOWFactory
}

func NewEntranceRepo(factory *dbs.UOWFactory) *EntranceRepo {
	return &EntranceRepo{factory: factory}
}

func (r *EntranceRepo) InsertEntrance(ctx context.Context, e *db.FormEntrance) (uint64, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO formlock.form_entrances(session_token, form_id, ip_address, user_agent, referrer,
			is_form_locked, timestamp) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`
	err = tx.QueryRow(ctx, query,
		e.SessionToken, e.FormID, e.IPAddress, e.UserAgent, e.Referrer, e.IsFormLocked, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		_ = uow.Rollback()
		return 0, err
	}

	if err = uow.Commit(); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (r *EntranceRepo) ListEntrancesByToken(ctx context.Context, token string) ([]db.FormEntrance, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	query := `SELECT id, session_token, form_id, ip_address, user_agent, referrer, is_form_locked, timestamp
		FROM formlock.form_entrances WHERE session_token = $1 ORDER BY timestamp`
	rows, err := tx.Query(ctx, query, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entrances []db.FormEntrance
	for rows.Next() {
		var e db.FormEntrance
		if err = rows.Scan(&e.ID, &e.SessionToken, &e.FormID, &e.IPAddress, &e.UserAgent, &e.Referrer,
			&e.IsFormLocked, &e.Timestamp); err != nil {
			return nil, err
		}
		entrances = append(entrances, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entrances, nil
}

// Store bundles the read side handed to the pipeline.
type Store struct {
	*SubmissionRepo
	*FormRepo
	*EntranceRepo
}

var _ interfaces.SubmissionStore = (*Store)(nil)

func NewStore(factory *dbs.UOWFactory) *Store {
	return &Store{
		SubmissionRepo: NewSubmissionRepo(factory),
		FormRepo:       NewFormRepo(factory),
		EntranceRepo:   NewEntranceRepo(factory),
	}
}
