package repo_test

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/formlock/formlock-backend/internal/application/consts"
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

func insertSubmission(t *testing.T, submissions *repo.SubmissionRepo, formID uint64, token string) *db.Submission {
	t.Helper()
	submission := &db.Submission{
		Token:     token,
		FormID:    formID,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
		Status:    consts.SubmissionStatusPending,
		CreatedAt: time.Now(),
	}
	_, err := submissions.InsertSubmission(context.Background(), submission)
	require.NoError(t, err)
	return submission
}

func TestInsertAndGetSubmission(t *testing.T) {
	submissions := repo.NewSubmissionRepo(uowFactory)
	formID := insertForm(t)
	ctx := context.Background()

	inserted := insertSubmission(t, submissions, formID, "aaaabbbbccccddddeeeeffff00001111")
	require.NotZero(t, inserted.ID)

	got, err := submissions.GetSubmissionByToken(ctx, inserted.Token)
	require.NoError(t, err)
	require.Equal(t, inserted.ID, got.ID)
	require.Equal(t, formID, got.FormID)
	require.Equal(t, consts.SubmissionStatusPending, got.Status)
	require.Nil(t, got.StartedAt)
}

func TestMarkInProgressIsIdempotent(t *testing.T) {
	submissions := repo.NewSubmissionRepo(uowFactory)
	formID := insertForm(t)
	ctx := context.Background()

	inserted := insertSubmission(t, submissions, formID, "aaaabbbbccccddddeeeeffff00002222")

	err := submissions.MarkInProgress(ctx, inserted.Token, time.Now())
	require.NoError(t, err)

	first, err := submissions.GetSubmissionByToken(ctx, inserted.Token)
	require.NoError(t, err)
	require.Equal(t, consts.SubmissionStatusInProgress, first.Status)
	require.NotNil(t, first.StartedAt)

	err = submissions.MarkInProgress(ctx, inserted.Token, time.Now().Add(time.Hour))
	require.NoError(t, err)

	second, err := submissions.GetSubmissionByToken(ctx, inserted.Token)
	require.NoError(t, err)
	require.WithinDuration(t, *first.StartedAt, *second.StartedAt, time.Microsecond)
}

func TestLockSubmissionIsExactlyOnce(t *testing.T) {
	submissions := repo.NewSubmissionRepo(uowFactory)
	formID := insertForm(t)
	ctx := context.Background()

	inserted := insertSubmission(t, submissions, formID, "aaaabbbbccccddddeeeeffff00003333")

	data := json.RawMessage(`{"name":"Ada"}`)
	locked, err := submissions.LockSubmission(ctx, inserted.Token, data, time.Now())
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = submissions.LockSubmission(ctx, inserted.Token, json.RawMessage(`{"name":"Eve"}`), time.Now())
	require.NoError(t, err)
	require.False(t, locked, "expected the second lock to lose")

	got, err := submissions.GetSubmissionByToken(ctx, inserted.Token)
	require.NoError(t, err)
	require.Equal(t, consts.SubmissionStatusLocked, got.Status)
	require.JSONEq(t, `{"name":"Ada"}`, string(got.SubmissionData))
	require.NotNil(t, got.LockedAt)

	isLocked, err := submissions.IsLocked(ctx, inserted.Token)
	require.NoError(t, err)
	require.True(t, isLocked)
}

func TestEntrancesAreListedInOrder(t *testing.T) {
	entrances := repo.NewEntranceRepo(uowFactory)
	formID := insertForm(t)
	ctx := context.Background()

	token := "aaaabbbbccccddddeeeeffff00004444"
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := entrances.InsertEntrance(ctx, &db.FormEntrance{
			SessionToken: &token,
			FormID:       formID,
			Timestamp:    base.Add(time.Duration(2-i) * time.Minute),
		})
		require.NoError(t, err)
	}

	listed, err := entrances.ListEntrancesByToken(ctx, token)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i := 1; i < len(listed); i++ {
		require.True(t, listed[i-1].Timestamp.Before(listed[i].Timestamp))
	}
}

func TestDeliveryAuditTrail(t *testing.T) {
	submissions := repo.NewSubmissionRepo(uowFactory)
	deliveries := repo.NewDeliveryRepo(uowFactory)
	formID := insertForm(t)
	ctx := context.Background()

	inserted := insertSubmission(t, submissions, formID, "aaaabbbbccccddddeeeeffff00005555")

	record := &db.WebhookDelivery{
		SubmissionID:   inserted.ID,
		WebhookURL:     "https://consumer.example/hook",
		Status:         consts.DeliveryStatusPending,
		RequestPayload: json.RawMessage(`{"event":"submission.completed"}`),
		RequestHeaders: json.RawMessage(`{"Content-Type":"application/json"}`),
	}
	id, err := deliveries.Create(ctx, record)
	require.NoError(t, err)
	require.NotZero(t, id)

	statusCode := 200
	now := time.Now()
	record.Status = consts.DeliveryStatusSuccess
	record.HTTPStatusCode = &statusCode
	record.RetryCount = 1
	record.DeliveredAt = &now
	require.NoError(t, deliveries.Update(ctx, record))

	listed, err := deliveries.ListBySubmission(ctx, inserted.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, consts.DeliveryStatusSuccess, listed[0].Status)
	require.Equal(t, 200, *listed[0].HTTPStatusCode)
	require.Equal(t, 1, listed[0].RetryCount)
	require.NotNil(t, listed[0].DeliveredAt)
}

func cleanup(ctx context.Context) {
	_, err := testinfra.Pool.Exec(ctx, `
		DELETE FROM formlock.webhook_deliveries;
		DELETE FROM formlock.form_entrances;
		DELETE FROM formlock.submissions;
		DELETE FROM formlock.forms;
	`)
	if err != nil {
		log.Panicf("err cleaning up repo test %v", err)
	}
}
