package repo

import (
	"context"
	"time"

	"github.com/formlock/formlock-backend/internal/application/interfaces"
	"github.com/formlock/formlock-backend/internal/infra/db"
	dbs "github.com/formlock/formlock-backend/pkg/db"
)

type DeliveryRepo struct {
	factory *dbs.UOWFactory
}

var _ interfaces.DeliveryRecorder = (*DeliveryRepo)(nil)

func NewDeliveryRepo(factory *dbs.UOWFactory) *DeliveryRepo {
	return &DeliveryRepo{factory: factory}
}

func (r *DeliveryRepo) Create(ctx context.Context, d *db.WebhookDelivery) (uint64, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	query := `INSERT INTO formlock.webhook_deliveries(submission_id, webhook_url, status, http_status_code,
			request_payload, request_headers, response_body, response_headers, error_message, retry_count,
			delivered_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`
	err = tx.QueryRow(ctx, query,
		d.SubmissionID, d.WebhookURL, d.Status, d.HTTPStatusCode, d.RequestPayload, d.RequestHeaders,
		d.ResponseBody, d.ResponseHeaders, d.ErrorMessage, d.RetryCount, d.DeliveredAt, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		_ = uow.Rollback()
		return 0, err
	}

	if err = uow.Commit(); err != nil {
		return 0, err
	}
	return d.ID, nil
}

func (r *DeliveryRepo) Update(ctx context.Context, d *db.WebhookDelivery) error {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now()
	query := `UPDATE formlock.webhook_deliveries SET status = $1, http_status_code = $2, response_body = $3,
			response_headers = $4, error_message = $5, retry_count = $6, delivered_at = $7, updated_at = $8
		WHERE id = $9`
	_, err = tx.Exec(ctx, query,
		d.Status, d.HTTPStatusCode, d.ResponseBody, d.ResponseHeaders, d.ErrorMessage, d.RetryCount,
		d.DeliveredAt, d.UpdatedAt, d.ID)
	if err != nil {
		_ = uow.Rollback()
		return err
	}

	return uow.Commit()
}

func (r *DeliveryRepo) ListBySubmission(ctx context.Context, submissionID uint64) ([]db.WebhookDelivery, error) {
	uow := r.factory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	query := `SELECT id, submission_id, webhook_url, status, http_status_code, request_payload, request_headers,
			response_body, response_headers, error_message, retry_count, delivered_at, created_at, updated_at
		FROM formlock.webhook_deliveries WHERE submission_id = $1 ORDER BY created_at`
	rows, err := tx.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []db.WebhookDelivery
	for rows.Next() {
		var d db.WebhookDelivery
		if err = rows.Scan(&d.ID, &d.SubmissionID, &d.WebhookURL, &d.Status, &d.HTTPStatusCode,
			&d.RequestPayload, &d.RequestHeaders, &d.ResponseBody, &d.ResponseHeaders, &d.ErrorMessage,
			&d.RetryCount, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return deliveries, nil
}
