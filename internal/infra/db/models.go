package db

import (
	"encoding/json"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/google/uuid"
)

type Form struct {
	ID                uint64            `db:"id"`
	Title             string            `db:"title"`
	Description       *string           `db:"description"`
	Status            consts.FormStatus `db:"status"`
	Theme             string            `db:"theme"`
	WebhookURL        *string           `db:"webhook_url"`
	WebhookIncludePDF bool              `db:"webhook_include_pdf"`
	CreatedBy         uuid.UUID         `db:"created_by"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

type Submission struct {
	ID                uint64                  `db:"id"`
	Token             string                  `db:"token"`
	FormID            uint64                  `db:"form_id"`
	PrefillData       json.RawMessage         `db:"prefill_data"`
	AdditionalData    json.RawMessage         `db:"additional_data"`
	CreatedByUserID   *uuid.UUID              `db:"created_by_user_id"`
	ExpiresAt         time.Time               `db:"expires_at"`
	WebhookURL        *string                 `db:"webhook_url"`
	WebhookIncludePDF *bool                   `db:"webhook_include_pdf"`
	Status            consts.SubmissionStatus `db:"status"`
	SubmissionData    json.RawMessage         `db:"submission_data"`
	CreatedAt         time.Time               `db:"created_at"`
	StartedAt         *time.Time              `db:"started_at"`
	SubmittedAt       *time.Time              `db:"submitted_at"`
	LockedAt          *time.Time              `db:"locked_at"`
}

type FormEntrance struct {
	ID           uint64    `db:"id"`
	SessionToken *string   `db:"session_token"`
	FormID       uint64    `db:"form_id"`
	IPAddress    *string   `db:"ip_address"`
	UserAgent    *string   `db:"user_agent"`
	Referrer     *string   `db:"referrer"`
	IsFormLocked bool      `db:"is_form_locked"`
	Timestamp    time.Time `db:"timestamp"`
}

type WebhookDelivery struct {
	ID              uint64                `db:"id"`
	SubmissionID    uint64                `db:"submission_id"`
	WebhookURL      string                `db:"webhook_url"`
	Status          consts.DeliveryStatus `db:"status"`
	HTTPStatusCode  *int                  `db:"http_status_code"`
	RequestPayload  json.RawMessage       `db:"request_payload"`
	RequestHeaders  json.RawMessage       `db:"request_headers"`
	ResponseBody    *string               `db:"response_body"`
	ResponseHeaders json.RawMessage       `db:"response_headers"`
	ErrorMessage    *string               `db:"error_message"`
	RetryCount      int                   `db:"retry_count"`
	DeliveredAt     *time.Time            `db:"delivered_at"`
	CreatedAt       time.Time             `db:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at"`
}
