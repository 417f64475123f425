package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/dto"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/infra/config"
	"github.com/formlock/formlock-backend/internal/infra/db"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
	"github.com/jackc/pgx/v5"
)

type CreateSubmissionLink struct {
	cfg         *config.LinkConfig
	forms       *repo.FormRepo
	submissions *repo.SubmissionRepo
}

func NewCreateSubmissionLink(cfg *config.LinkConfig, forms *repo.FormRepo, submissions *repo.SubmissionRepo) *CreateSubmissionLink {
	return &CreateSubmissionLink{cfg: cfg, forms: forms, submissions: submissions}
}

func (c *CreateSubmissionLink) Execute(ctx context.Context, formID uint64, req dto.CreateSubmissionLinkRequest) (dto.CreateSubmissionLinkResponse, error) {
	form, err := c.forms.GetFormByID(ctx, formID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.CreateSubmissionLinkResponse{}, errs.NotFoundError{Err: fmt.Errorf("form %d", formID)}
		}
		return dto.CreateSubmissionLinkResponse{}, err
	}
	if form.Status != consts.FormStatusPublished {
		return dto.CreateSubmissionLinkResponse{}, errs.ValidationError{Err: fmt.Errorf("form %d must be published", formID)}
	}

	expiresIn := c.cfg.ExpiresIn
	if req.ExpiresInHours > 0 {
		expiresIn = time.Duration(req.ExpiresInHours) * time.Hour
	}

	now := time.Now()
	userID := req.UserID
	submission := &db.Submission{
		Token:           generateToken(),
		FormID:          formID,
		PrefillData:     db.MapToRawMessage(req.Prefill),
		AdditionalData:  db.MapToRawMessage(req.AdditionalData),
		CreatedByUserID: &userID,
		ExpiresAt:       now.Add(expiresIn),
		WebhookURL:      req.WebhookURL,
		Status:          consts.SubmissionStatusPending,
		CreatedAt:       now,
	}
	if _, err = c.submissions.InsertSubmission(ctx, submission); err != nil {
		return dto.CreateSubmissionLinkResponse{}, fmt.Errorf("err inserting submission, %v", err)
	}

	return dto.CreateSubmissionLinkResponse{
		Token:     submission.Token,
		FormID:    formID,
		Link:      fmt.Sprintf("%s/fill/%d?token=%s", c.cfg.BaseURL, formID, submission.Token),
		ExpiresAt: submission.ExpiresAt,
	}, nil
}
