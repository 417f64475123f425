package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/dto"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/application/events"
	"github.com/formlock/formlock-backend/internal/application/pipeline"
	"github.com/formlock/formlock-backend/internal/infra/db"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
	"github.com/jackc/pgx/v5"
)

type SubmitSubmission struct {
	submissions *repo.SubmissionRepo
	pipeline    *pipeline.SubmissionPipeline
}

func NewSubmitSubmission(submissions *repo.SubmissionRepo, p *pipeline.SubmissionPipeline) *SubmitSubmission {
	return &SubmitSubmission{submissions: submissions, pipeline: p}
}

// Execute locks a submission with the submitted data and schedules the
// post-submission pipeline. The returned channel closes when the detached
// pipeline run finishes; the HTTP layer discards it.
func (c *SubmitSubmission) Execute(ctx context.Context, token string, req dto.SubmitSubmissionRequest) (<-chan struct{}, error) {
	submission, err := c.submissions.GetSubmissionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundError{Err: fmt.Errorf("submission %s", token)}
		}
		return nil, err
	}

	if submission.Status == consts.SubmissionStatusLocked {
		return nil, errs.LockedError{Err: fmt.Errorf("submission %s cannot be modified", token)}
	}
	if time.Now().After(submission.ExpiresAt) {
		return nil, errs.ExpiredError{Err: fmt.Errorf("submission %s expired at %s", token, submission.ExpiresAt)}
	}

	lockedAt := time.Now()
	locked, err := c.submissions.LockSubmission(ctx, token, db.MapToRawMessage(req.SubmissionData), lockedAt)
	if err != nil {
		return nil, err
	}
	if !locked {
		// a concurrent submit won the conditional update
		return nil, errs.LockedError{Err: fmt.Errorf("submission %s cannot be modified", token)}
	}

	return c.pipeline.Enqueue(events.SubmissionLocked{
		SubmissionID: submission.ID,
		FormID:       submission.FormID,
		Token:        token,
		LockedAt:     lockedAt,
	}), nil
}
