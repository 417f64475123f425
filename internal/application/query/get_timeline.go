package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/formlock/formlock-backend/internal/application/dto"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/application/interfaces"
	"github.com/formlock/formlock-backend/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type GetTimeline struct {
	store      interfaces.SubmissionStore
	deliveries interfaces.DeliveryRecorder
}

func NewGetTimeline(store interfaces.SubmissionStore, deliveries interfaces.DeliveryRecorder) *GetTimeline {
	return &GetTimeline{store: store, deliveries: deliveries}
}

func (q *GetTimeline) Query(ctx context.Context, token string) (dto.TimelineResponse, error) {
	submission, err := q.store.GetSubmissionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.TimelineResponse{}, errs.NotFoundError{Err: fmt.Errorf("submission %s", token)}
		}
		return dto.TimelineResponse{}, err
	}

	entrances, err := q.store.ListEntrancesByToken(ctx, token)
	if err != nil {
		return dto.TimelineResponse{}, err
	}
	deliveries, err := q.deliveries.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return dto.TimelineResponse{}, err
	}

	return dto.TimelineResponse{
		Token:  token,
		Events: BuildTimeline(submission, entrances, deliveries),
	}, nil
}

// BuildTimeline merges lifecycle events, entrances and delivery records
// into one chronological view.
func BuildTimeline(submission *db.Submission, entrances []db.FormEntrance, deliveries []db.WebhookDelivery) []dto.TimelineEvent {
	var events []dto.TimelineEvent

	events = append(events, dto.TimelineEvent{
		Kind:      "lifecycle",
		Event:     "created",
		Timestamp: submission.CreatedAt,
	})
	if submission.StartedAt != nil {
		events = append(events, dto.TimelineEvent{
			Kind:      "lifecycle",
			Event:     "started",
			Timestamp: *submission.StartedAt,
		})
	}
	if submission.SubmittedAt != nil {
		events = append(events, dto.TimelineEvent{
			Kind:      "lifecycle",
			Event:     "submitted",
			Timestamp: *submission.SubmittedAt,
		})
	}
	if submission.LockedAt != nil {
		events = append(events, dto.TimelineEvent{
			Kind:      "lifecycle",
			Event:     "locked",
			Timestamp: *submission.LockedAt,
		})
	}
	events = append(events, dto.TimelineEvent{
		Kind:      "lifecycle",
		Event:     "expires",
		Timestamp: submission.ExpiresAt,
	})

	for _, e := range entrances {
		entranceID := e.ID
		events = append(events, dto.TimelineEvent{
			Kind:       "entrance",
			Timestamp:  e.Timestamp,
			EntranceID: &entranceID,
			IPAddress:  e.IPAddress,
			UserAgent:  e.UserAgent,
			Referrer:   e.Referrer,
		})
	}

	for _, d := range deliveries {
		deliveryID := d.ID
		webhookURL := d.WebhookURL
		status := string(d.Status)
		retryCount := d.RetryCount
		events = append(events, dto.TimelineEvent{
			Kind:           "webhook",
			Timestamp:      d.CreatedAt,
			DeliveryID:     &deliveryID,
			WebhookURL:     &webhookURL,
			DeliveryStatus: &status,
			HTTPStatusCode: d.HTTPStatusCode,
			ErrorMessage:   d.ErrorMessage,
			RetryCount:     &retryCount,
			DeliveredAt:    d.DeliveredAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
