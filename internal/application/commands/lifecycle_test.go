package commands_test

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/formlock/formlock-backend/internal/application/commands"
	"github.com/formlock/formlock-backend/internal/application/consts"
	"github.com/formlock/formlock-backend/internal/application/dto"
	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/application/pipeline"
	"github.com/formlock/formlock-backend/internal/infra/config"
	"github.com/formlock/formlock-backend/internal/infra/db"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
	"github.com/formlock/formlock-backend/internal/testinfra"
	dbs "github.com/formlock/formlock-backend/pkg/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var uowFactory *dbs.UOWFactory

func TestMain(m *testing.M) {
	ctx := context.Background()

	uowFactory = dbs.NewUoWFactory(testinfra.Pool)
	code := m.Run()

	cleanup(ctx)

	os.Exit(code)
}

type staticArtifacts struct{}

func (staticArtifacts) Acquire(ctx context.Context, token string) ([]byte, error) {
	return []byte("%PDF-1.7 artifact"), nil
}

type countingRecorder struct {
	mu      sync.Mutex
	records []db.WebhookDelivery
}

func (r *countingRecorder) Create(ctx context.Context, d *db.WebhookDelivery) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uint64(len(r.records) + 1)
	r.records = append(r.records, *d)
	return d.ID, nil
}

func (r *countingRecorder) Update(ctx context.Context, d *db.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[d.ID-1] = *d
	return nil
}

func (r *countingRecorder) ListBySubmission(ctx context.Context, submissionID uint64) ([]db.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.WebhookDelivery
	for _, d := range r.records {
		if d.SubmissionID == submissionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func newSubmitCommand(t *testing.T) (*commands.SubmitSubmission, *countingRecorder) {
	t.Helper()
	store := repo.NewStore(uowFactory)
	recorder := &countingRecorder{}
	dispatcher := pipeline.NewWebhookDispatcher(recorder, &config.WebhookConfig{
		RequestTimeout: 5 * time.Second,
		RetryBackoff:   10 * time.Millisecond,
		BodyCap:        64 * 1024,
		UserAgent:      "Formlock-Webhook/1.0",
	})
	p := pipeline.NewSubmissionPipeline(store, staticArtifacts{}, dispatcher)
	go p.Start()
	t.Cleanup(p.Stop)
	return commands.NewSubmitSubmission(store.SubmissionRepo, p), recorder
}

func insertForm(t *testing.T) uint64 {
	t.Helper()
	var id uint64
	err := testinfra.Pool.QueryRow(context.Background(),
		`INSERT INTO formlock.forms(title, status, theme, created_by, created_at, updated_at)
			VALUES ('Intake', $1, 'default', $2, NOW(), NOW()) RETURNING id`,
		consts.FormStatusPublished, uuid.New(),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertPendingSubmission(t *testing.T, formID uint64, token string, expiresAt time.Time) {
	t.Helper()
	submissions := repo.NewSubmissionRepo(uowFactory)
	_, err := submissions.InsertSubmission(context.Background(), &db.Submission{
		Token:     token,
		FormID:    formID,
		ExpiresAt: expiresAt,
		Status:    consts.SubmissionStatusPending,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func submitRequest() dto.SubmitSubmissionRequest {
	return dto.SubmitSubmissionRequest{SubmissionData: map[string]interface{}{"name": "Ada"}}
}

func TestSubmitExpiredSubmissionIsRejectedUnchanged(t *testing.T) {
	submit, recorder := newSubmitCommand(t)
	formID := insertForm(t)
	ctx := context.Background()

	token := "ccccddddeeeeffff0000111122223333"
	insertPendingSubmission(t, formID, token, time.Now().Add(-time.Hour))

	done, err := submit.Execute(ctx, token, submitRequest())
	var expiredErr errs.ExpiredError
	require.ErrorAs(t, err, &expiredErr)
	require.Nil(t, done)

	got, err := repo.NewSubmissionRepo(uowFactory).GetSubmissionByToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, consts.SubmissionStatusPending, got.Status)
	require.Empty(t, got.SubmissionData, "rejected submit must not store data")
	require.Nil(t, got.SubmittedAt)
	require.Nil(t, got.LockedAt)
	require.Equal(t, 0, recorder.count(), "rejected submit must not create a delivery")
}

func TestStartExpiredSubmissionIsRejectedUnchanged(t *testing.T) {
	submissions := repo.NewSubmissionRepo(uowFactory)
	start := commands.NewStartSubmission(submissions)
	formID := insertForm(t)
	ctx := context.Background()

	token := "ccccddddeeeeffff0000111122224444"
	insertPendingSubmission(t, formID, token, time.Now().Add(-time.Minute))

	_, err := start.Execute(ctx, token)
	var expiredErr errs.ExpiredError
	require.ErrorAs(t, err, &expiredErr)

	got, err := submissions.GetSubmissionByToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, consts.SubmissionStatusPending, got.Status)
	require.Nil(t, got.StartedAt)
}

func TestSubmitLockedSubmissionCreatesNoSecondDelivery(t *testing.T) {
	submit, recorder := newSubmitCommand(t)
	formID := insertForm(t)
	ctx := context.Background()

	token := "ccccddddeeeeffff0000111122225555"
	insertPendingSubmission(t, formID, token, time.Now().Add(24*time.Hour))

	done, err := submit.Execute(ctx, token, submitRequest())
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline run did not finish")
	}
	require.Equal(t, 1, recorder.count())

	done, err = submit.Execute(ctx, token, dto.SubmitSubmissionRequest{
		SubmissionData: map[string]interface{}{"name": "Eve"},
	})
	var lockedErr errs.LockedError
	require.ErrorAs(t, err, &lockedErr)
	require.Nil(t, done)

	got, err := repo.NewSubmissionRepo(uowFactory).GetSubmissionByToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, consts.SubmissionStatusLocked, got.Status)
	require.JSONEq(t, `{"name":"Ada"}`, string(got.SubmissionData))
	require.Equal(t, 1, recorder.count(), "locked submit must not trigger another delivery")
}

func TestSubmitUnknownTokenReturnsNotFound(t *testing.T) {
	submit, _ := newSubmitCommand(t)

	_, err := submit.Execute(context.Background(), "ccccddddeeeeffff0000111122226666", submitRequest())
	var notFoundErr errs.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestStartUnknownTokenReturnsNotFound(t *testing.T) {
	start := commands.NewStartSubmission(repo.NewSubmissionRepo(uowFactory))

	_, err := start.Execute(context.Background(), "ccccddddeeeeffff0000111122227777")
	var notFoundErr errs.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func cleanup(ctx context.Context) {
	_, err := testinfra.Pool.Exec(ctx, `
		DELETE FROM formlock.webhook_deliveries;
		DELETE FROM formlock.form_entrances;
		DELETE FROM formlock.submissions;
		DELETE FROM formlock.forms;
	`)
	if err != nil {
		log.Panicf("err cleaning up commands test %v", err)
	}
}
