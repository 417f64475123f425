package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
	"github.com/jackc/pgx/v5"
)

type StartSubmission struct {
	submissions *repo.SubmissionRepo
}

func NewStartSubmission(submissions *repo.SubmissionRepo) *StartSubmission {
	return &StartSubmission{submissions: submissions}
}

// Execute moves a pending submission to in_progress on first access.
// Calling it again while in_progress is a no-op.
func (c *StartSubmission) Execute(ctx context.Context, token string) (consts.SubmissionStatus, error) {
	submission, err := c.submissions.GetSubmissionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.NotFoundError{Err: fmt.Errorf("submission %s", token)}
		}
		return "", err
	}

	if time.Now().After(submission.ExpiresAt) {
		return "", errs.ExpiredError{Err: fmt.Errorf("submission %s expired at %s", token, submission.ExpiresAt)}
	}

	if submission.Status != consts.SubmissionStatusPending {
		return submission.Status, nil
	}

	if err = c.submissions.MarkInProgress(ctx, token, time.Now()); err != nil {
		return "", err
	}
	return consts.SubmissionStatusInProgress, nil
}
