package pipeline

import (
	"encoding/base64"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/infra/db"
)

// WebhookPayload is the wire contract consumers integrate against; field
// names and shape must stay stable.
type WebhookPayload struct {
	Event          string                 `json:"event"`
	Timestamp      string                 `json:"timestamp"`
	SubmissionID   uint64                 `json:"submissionId"`
	FormID         uint64                 `json:"formId"`
	Token          string                 `json:"token"`
	Status         string                 `json:"status"`
	SubmissionData map[string]interface{} `json:"submissionData"`
	PrefillData    map[string]interface{} `json:"prefillData"`
	AdditionalData map[string]interface{} `json:"additionalData"`
	Entrances      []PayloadEntrance      `json:"entrances"`
	PDFBase64      string                 `json:"pdfBase64"`
	Metadata       PayloadMetadata        `json:"metadata"`
}

type PayloadEntrance struct {
	ID        uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress *string   `json:"ipAddress"`
	UserAgent *string   `json:"userAgent"`
	Referrer  *string   `json:"referrer"`
}

type PayloadMetadata struct {
	WebhookDeliveryID uint64  `json:"webhookDeliveryId"`
	RetryAttempt      int     `json:"retryAttempt"`
	SubmittedAt       *string `json:"submittedAt"`
}

func buildPayload(submission *db.Submission, entrances []db.FormEntrance, pdf []byte) WebhookPayload {
	payloadEntrances := make([]PayloadEntrance, 0, len(entrances))
	for _, e := range entrances {
		payloadEntrances = append(payloadEntrances, PayloadEntrance{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Referrer:  e.Referrer,
		})
	}

	var submittedAt *string
	if submission.SubmittedAt != nil {
		formatted := submission.SubmittedAt.Format(time.RFC3339)
		submittedAt = &formatted
	}

	return WebhookPayload{
		Event:          consts.WebhookEventSubmissionCompleted,
		Timestamp:      time.Now().Format(time.RFC3339),
		SubmissionID:   submission.ID,
		FormID:         submission.FormID,
		Token:          submission.Token,
		Status:         string(submission.Status),
		SubmissionData: db.RawMessageToMap(submission.SubmissionData),
		PrefillData:    db.RawMessageToMap(submission.PrefillData),
		AdditionalData: db.RawMessageToMap(submission.AdditionalData),
		Entrances:      payloadEntrances,
		PDFBase64:      base64.StdEncoding.EncodeToString(pdf),
		Metadata: PayloadMetadata{
			SubmittedAt: submittedAt,
		},
	}
}
