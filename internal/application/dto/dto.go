package dto

import (
	"time"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateSubmissionLinkRequest struct {
	UserID         uuid.UUID              `json:"userId" validate:"required"`
	Prefill        map[string]interface{} `json:"prefill"`
	AdditionalData map[string]interface{} `json:"additionalData"`
	WebhookURL     *string                `json:"webhookUrl" validate:"omitempty,url"`
	ExpiresInHours int                    `json:"expiresInHours" validate:"omitempty,gt=0"`
}

type CreateSubmissionLinkResponse struct {
	Token     string    `json:"token"`
	FormID    uint64    `json:"formId"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type StartSubmissionResponse struct {
	Status string `json:"status"`
}

type SubmitSubmissionRequest struct {
	SubmissionData map[string]interface{} `json:"submissionData" validate:"required"`
}

type SubmitSubmissionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RecordEntranceRequest struct {
	SessionToken *string `json:"sessionToken"`
}

type RecordEntranceResponse struct {
	EntranceID uint64 `json:"entranceId"`
}

// TimelineEvent is one entry of the merged submission history. Kind is one
// of "lifecycle", "entrance" or "webhook"; the optional fields are filled
// depending on the kind.
type TimelineEvent struct {
	Kind      string    `json:"kind"`
	Event     string    `json:"event,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	EntranceID *uint64 `json:"entranceId,omitempty"`
	IPAddress  *string `json:"ipAddress,omitempty"`
	UserAgent  *string `json:"userAgent,omitempty"`
	Referrer   *string `json:"referrer,omitempty"`

	DeliveryID     *uint64    `json:"deliveryId,omitempty"`
	WebhookURL     *string    `json:"webhookUrl,omitempty"`
	DeliveryStatus *string    `json:"deliveryStatus,omitempty"`
	HTTPStatusCode *int       `json:"httpStatusCode,omitempty"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	RetryCount     *int       `json:"retryCount,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}

type TimelineResponse struct {
	Token  string          `json:"token"`
	Events []TimelineEvent `json:"events"`
}
