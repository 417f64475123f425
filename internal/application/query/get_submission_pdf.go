package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/application/interfaces"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
	"github.com/jackc/pgx/v5"
)

type GetSubmissionPDF struct {
	submissions *repo.SubmissionRepo
	artifacts   interfaces.ArtifactSource
}

func NewGetSubmissionPDF(submissions *repo.SubmissionRepo, artifacts interfaces.ArtifactSource) *GetSubmissionPDF {
	return &GetSubmissionPDF{submissions: submissions, artifacts: artifacts}
}

// Query returns the rendered artifact for a token, from cache when fresh
// and rendering synchronously otherwise.
func (q *GetSubmissionPDF) Query(ctx context.Context, token string) ([]byte, error) {
	if _, err := q.submissions.GetSubmissionByToken(ctx, token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundError{Err: fmt.Errorf("submission %s", token)}
		}
		return nil, err
	}

	pdf, err := q.artifacts.Acquire(ctx, token)
	if err != nil {
		var renderErr errs.RenderError
		if errors.As(err, &renderErr) {
			return nil, err
		}
		return nil, errs.RenderError{Err: err}
	}
	return pdf, nil
}
