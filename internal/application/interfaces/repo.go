package interfaces

import (
	"context"

	"github.com/formlock/formlock-backend/internal/infra/db"
)

type SubmissionStore interface {
	GetSubmissionByToken(ctx context.Context, token string) (*db.Submission, error)
	GetFormByID(ctx context.Context, id uint64) (*db.Form, error)
	ListEntrancesByToken(ctx context.Context, token string) ([]db.FormEntrance, error)
}

// DeliveryRecorder persists the audit trail of one webhook delivery
// sequence. Records are updated in place and never deleted.
type DeliveryRecorder interface {
	Create(ctx context.Context, delivery *db.WebhookDelivery) (uint64, error)
	Update(ctx context.Context, delivery *db.WebhookDelivery) error
	ListBySubmission(ctx context.Context, submissionID uint64) ([]db.WebhookDelivery, error)
}

// ArtifactSource produces the rendered PDF for a token, deduplicating
// concurrent requests.
type ArtifactSource interface {
	Acquire(ctx context.Context, token string) ([]byte, error)
}
