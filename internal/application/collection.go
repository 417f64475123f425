package application

import (
	"github.com/formlock/formlock-backend/internal/application/commands"
	"github.com/formlock/formlock-backend/internal/application/query"
)

type Handlers struct {
	CreateSubmissionLink *commands.CreateSubmissionLink
	StartSubmission      *commands.StartSubmission
	SubmitSubmission     *commands.SubmitSubmission
	RecordEntrance       *commands.RecordEntrance
	GetSubmissionPDF     *query.GetSubmissionPDF
	GetTimeline          *query.GetTimeline
}
