package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/application/interfaces"
	"github.com/formlock/formlock-backend/internal/application/settings"
	"github.com/formlock/formlock-backend/internal/infra/config"
	"github.com/formlock/formlock-backend/internal/infra/db"
)

const noWebhookResponse = "no webhook configured"

// WebhookDispatcher executes one delivery sequence per locked submission:
// a single POST attempt plus exactly one retry, with every attempt
// recorded in the audit trail.
type WebhookDispatcher struct {
	recorder interfaces.DeliveryRecorder
	cfg      *config.WebhookConfig
	client   *http.Client
}

type DeliveryOutcome struct {
	DeliveryID uint64
	Success    bool
}

func NewWebhookDispatcher(recorder interfaces.DeliveryRecorder, cfg *config.WebhookConfig) *WebhookDispatcher {
	return &WebhookDispatcher{
		recorder: recorder,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type attemptResult struct {
	success         bool
	statusCode      *int
	responseBody    *string
	responseHeaders map[string]string
	errorMessage    *string
}

func (d *WebhookDispatcher) Deliver(ctx context.Context, submission *db.Submission, form *db.Form,
	entrances []db.FormEntrance, pdf []byte) (DeliveryOutcome, error) {

	resolved := settings.ForSubmission(form, submission)
	payload := buildPayload(submission, entrances, pdf)
	requestHeaders := map[string]string{
		"Content-Type":    "application/json",
		"User-Agent":      d.cfg.UserAgent,
		"X-Webhook-Event": payload.Event,
		"X-Submission-Id": strconv.FormatUint(submission.ID, 10),
		"X-Form-Id":       strconv.FormatUint(submission.FormID, 10),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return DeliveryOutcome{}, fmt.Errorf("err marshalling webhook payload, %v", err)
	}

	// no URL configured: record an audited no-op success, no network call
	if resolved.WebhookURL == nil || *resolved.WebhookURL == "" {
		now := time.Now()
		responseBody := noWebhookResponse
		record := &db.WebhookDelivery{
			SubmissionID:   submission.ID,
			WebhookURL:     "none",
			Status:         consts.DeliveryStatusSuccess,
			RequestPayload: payloadJSON,
			RequestHeaders: db.HeadersToRawMessage(requestHeaders),
			ResponseBody:   &responseBody,
			RetryCount:     0,
			DeliveredAt:    &now,
		}
		id, err := d.recorder.Create(ctx, record)
		if err != nil {
			return DeliveryOutcome{}, err
		}
		return DeliveryOutcome{DeliveryID: id, Success: true}, nil
	}

	webhookURL := *resolved.WebhookURL
	record := &db.WebhookDelivery{
		SubmissionID:   submission.ID,
		WebhookURL:     webhookURL,
		Status:         consts.DeliveryStatusPending,
		RequestPayload: payloadJSON,
		RequestHeaders: db.HeadersToRawMessage(requestHeaders),
		RetryCount:     0,
	}
	deliveryID, err := d.recorder.Create(ctx, record)
	if err != nil {
		return DeliveryOutcome{}, err
	}
	payload.Metadata.WebhookDeliveryID = deliveryID

	result := d.attempt(ctx, webhookURL, payload, requestHeaders)

	if !result.success {
		record.Status = consts.DeliveryStatusRetry
		record.RetryCount = 1
		applyResult(record, result)
		if err := d.recorder.Update(ctx, record); err != nil {
			return DeliveryOutcome{DeliveryID: deliveryID}, err
		}

		time.Sleep(d.cfg.RetryBackoff)

		payload.Metadata.RetryAttempt = 1
		result = d.attempt(ctx, webhookURL, payload, requestHeaders)
	}

	applyResult(record, result)
	if result.success {
		record.Status = consts.DeliveryStatusSuccess
		record.ErrorMessage = nil
		now := time.Now()
		record.DeliveredAt = &now
	} else {
		record.Status = consts.DeliveryStatusFailed
	}
	if err := d.recorder.Update(ctx, record); err != nil {
		return DeliveryOutcome{DeliveryID: deliveryID}, err
	}

	if !result.success {
		message := "delivery failed"
		if result.errorMessage != nil {
			message = *result.errorMessage
		}
		return DeliveryOutcome{DeliveryID: deliveryID},
			errs.DeliveryError{Err: fmt.Errorf("webhook %s: %s", webhookURL, message)}
	}

	return DeliveryOutcome{DeliveryID: deliveryID, Success: true}, nil
}

func (d *WebhookDispatcher) attempt(ctx context.Context, url string, payload WebhookPayload,
	headers map[string]string) attemptResult {

	body, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Sprintf("err marshalling payload: %v", err))
	}

	request, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return failure(err.Error())
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	resp, err := d.client.Do(request)
	if err != nil {
		return failure(err.Error())
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(io.LimitReader(resp.Body, int64(d.cfg.BodyCap)))
	if err != nil {
		return failure(err.Error())
	}
	responseBody := string(responseBytes)

	responseHeaders := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		responseHeaders[key] = resp.Header.Get(key)
	}

	statusCode := resp.StatusCode
	result := attemptResult{
		statusCode:      &statusCode,
		responseBody:    &responseBody,
		responseHeaders: responseHeaders,
	}
	if statusCode >= 200 && statusCode < 300 {
		result.success = true
	} else {
		message := truncate(fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)), 1000)
		result.errorMessage = &message
	}
	return result
}

func failure(message string) attemptResult {
	message = truncate(message, 1000)
	return attemptResult{errorMessage: &message}
}

// applyResult only overwrites what the attempt actually captured, so a
// retry that dies before getting a response keeps the first attempt's
// status and body on the record.
func applyResult(record *db.WebhookDelivery, result attemptResult) {
	if result.statusCode != nil {
		record.HTTPStatusCode = result.statusCode
	}
	if result.responseBody != nil {
		record.ResponseBody = result.responseBody
	}
	if result.responseHeaders != nil {
		record.ResponseHeaders = db.HeadersToRawMessage(result.responseHeaders)
	}
	if result.errorMessage != nil {
		record.ErrorMessage = result.errorMessage
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
