package commands

import (
	"context"
	"time"

	"github.com/formlock/formlock-backend/internal/application/dto"
	"github.com/formlock/formlock-backend/internal/infra/db"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
)

// EntranceMeta carries request metadata the HTTP layer extracts from the
// incoming visit.
type EntranceMeta struct {
	IPAddress *string
	UserAgent *string
	Referrer  *string
}

type RecordEntrance struct {
	entrances *repo.EntranceRepo
}

func NewRecordEntrance(entrances *repo.EntranceRepo) *RecordEntrance {
	return &RecordEntrance{entrances: entrances}
}

func (c *RecordEntrance) Execute(ctx context.Context, formID uint64, req dto.RecordEntranceRequest, meta EntranceMeta) (uint64, error) {
	entrance := &db.FormEntrance{
		SessionToken: req.SessionToken,
		FormID:       formID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Referrer:     meta.Referrer,
		IsFormLocked: false,
		Timestamp:    time.Now(),
	}
	return c.entrances.InsertEntrance(ctx, entrance)
}
