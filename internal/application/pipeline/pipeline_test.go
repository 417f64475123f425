package pipeline_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/events"
	"github.com/formlock/formlock-backend/internal/application/pipeline"
	"github.com/formlock/formlock-backend/internal/infra/db"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	submission *db.Submission
	form       *db.Form
	entrances  []db.FormEntrance
}

func (f *fakeStore) GetSubmissionByToken(ctx context.Context, token string) (*db.Submission, error) {
	return f.submission, nil
}

func (f *fakeStore) GetFormByID(ctx context.Context, id uint64) (*db.Form, error) {
	return f.form, nil
}

func (f *fakeStore) ListEntrancesByToken(ctx context.Context, token string) ([]db.FormEntrance, error) {
	return f.entrances, nil
}

type fakeArtifacts struct {
	pdf []byte
	err error
}

func (f *fakeArtifacts) Acquire(ctx context.Context, token string) ([]byte, error) {
	return f.pdf, f.err
}

func runPipeline(t *testing.T, store *fakeStore, artifacts *fakeArtifacts, recorder *fakeRecorder) *pipeline.SubmissionPipeline {
	t.Helper()
	dispatcher := pipeline.NewWebhookDispatcher(recorder, webhookConfig())
	p := pipeline.NewSubmissionPipeline(store, artifacts, dispatcher)
	go p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestPipelineDeliversWithArtifact(t *testing.T) {
	payloads := make(chan pipeline.WebhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload pipeline.WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		payloads <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	submission, form := lockedSubmission(&server.URL)
	store := &fakeStore{submission: submission, form: form}
	artifacts := &fakeArtifacts{pdf: []byte("%PDF-1.7 artifact")}
	recorder := newFakeRecorder()
	p := runPipeline(t, store, artifacts, recorder)

	select {
	case <-p.Enqueue(events.SubmissionLocked{SubmissionID: submission.ID, FormID: submission.FormID, Token: submission.Token}):
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline run did not finish")
	}

	payload := <-payloads
	require.Equal(t, submission.Token, payload.Token)
	require.Equal(t, base64.StdEncoding.EncodeToString(artifacts.pdf), payload.PDFBase64)

	record := recorder.get(payload.Metadata.WebhookDeliveryID)
	require.Equal(t, consts.DeliveryStatusSuccess, record.Status)
}

func TestPipelineDeliversWithoutArtifactWhenRenderFails(t *testing.T) {
	payloads := make(chan pipeline.WebhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload pipeline.WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		payloads <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	submission, form := lockedSubmission(&server.URL)
	store := &fakeStore{submission: submission, form: form}
	artifacts := &fakeArtifacts{err: errors.New("renderer down")}
	recorder := newFakeRecorder()
	p := runPipeline(t, store, artifacts, recorder)

	select {
	case <-p.Enqueue(events.SubmissionLocked{SubmissionID: submission.ID, FormID: submission.FormID, Token: submission.Token}):
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline run did not finish")
	}

	payload := <-payloads
	require.Equal(t, submission.Token, payload.Token)
	require.Empty(t, payload.PDFBase64, "expected delivery without an artifact")

	record := recorder.get(payload.Metadata.WebhookDeliveryID)
	require.Equal(t, consts.DeliveryStatusSuccess, record.Status)
}

func TestPipelineSkipsRenderWhenPDFDisabled(t *testing.T) {
	payloads := make(chan pipeline.WebhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload pipeline.WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		payloads <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	submission, form := lockedSubmission(&server.URL)
	form.WebhookIncludePDF = false
	store := &fakeStore{submission: submission, form: form}
	artifacts := &fakeArtifacts{pdf: []byte("should not be used")}
	recorder := newFakeRecorder()
	p := runPipeline(t, store, artifacts, recorder)

	select {
	case <-p.Enqueue(events.SubmissionLocked{SubmissionID: submission.ID, FormID: submission.FormID, Token: submission.Token}):
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline run did not finish")
	}

	payload := <-payloads
	require.Empty(t, payload.PDFBase64)
}
