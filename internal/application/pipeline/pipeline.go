package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/application/events"
	"github.com/formlock/formlock-backend/internal/application/interfaces"
	"github.com/formlock/formlock-backend/internal/application/settings"
	pkgi "github.com/formlock/formlock-backend/pkg/interfaces"
)

// SubmissionPipeline runs the post-lock work detached from the request
// that triggered it: render the artifact, deliver the webhook, record the
// outcome. Errors are logged, never reported back to the submitter.
type SubmissionPipeline struct {
	store      interfaces.SubmissionStore
	artifacts  interfaces.ArtifactSource
	dispatcher *WebhookDispatcher
	tasks      chan task
	stop       chan struct{}
}

type task struct {
	event pkgi.Event
	done  chan struct{}
}

func NewSubmissionPipeline(store interfaces.SubmissionStore, artifacts interfaces.ArtifactSource,
	dispatcher *WebhookDispatcher) *SubmissionPipeline {
	return &SubmissionPipeline{
		store:      store,
		artifacts:  artifacts,
		dispatcher: dispatcher,
		tasks:      make(chan task, 64),
		stop:       make(chan struct{}),
	}
}

func (p *SubmissionPipeline) Start() {
	slog.Info("Starting submission pipeline...")
	for {
		select {
		case t := <-p.tasks:
			go func(t task) {
				defer close(t.done)
				p.handle(context.Background(), t.event)
			}(t)
		case <-p.stop:
			slog.Info("Stopping submission pipeline")
			return
		}
	}
}

func (p *SubmissionPipeline) Stop() {
	p.stop <- struct{}{}
}

// Enqueue schedules a pipeline run for an event. The returned channel
// closes when the run finishes; production callers discard it, tests may
// await it.
func (p *SubmissionPipeline) Enqueue(event pkgi.Event) <-chan struct{} {
	t := task{event: event, done: make(chan struct{})}
	p.tasks <- t
	return t.done
}

func (p *SubmissionPipeline) handle(ctx context.Context, event pkgi.Event) {
	switch e := event.(type) {
	case events.SubmissionLocked:
		p.OnLocked(ctx, e)
	default:
		slog.Warn("pipeline: no handler for event", "type", event.GetType())
	}
}

func (p *SubmissionPipeline) OnLocked(ctx context.Context, event events.SubmissionLocked) {
	token := event.Token
	submission, err := p.store.GetSubmissionByToken(ctx, token)
	if err != nil {
		slog.Error("pipeline: error fetching submission", "token", token, "err", err)
		return
	}
	form, err := p.store.GetFormByID(ctx, submission.FormID)
	if err != nil {
		slog.Error("pipeline: error fetching form", "form", submission.FormID, "err", err)
		return
	}
	entrances, err := p.store.ListEntrancesByToken(ctx, token)
	if err != nil {
		slog.Error("pipeline: error fetching entrances", "token", token, "err", err)
		entrances = nil
	}

	resolved := settings.ForSubmission(form, submission)

	// a notification without a PDF beats no notification at all
	var pdf []byte
	if resolved.WebhookIncludePDF {
		pdf, err = p.artifacts.Acquire(ctx, token)
		if err != nil {
			var renderErr errs.RenderError
			if !errors.As(err, &renderErr) {
				err = errs.RenderError{Err: err}
			}
			slog.Error("pipeline: render failed, delivering without artifact", "token", token, "err", err)
			pdf = nil
		}
	}

	outcome, err := p.dispatcher.Deliver(ctx, submission, form, entrances, pdf)
	if err != nil {
		slog.Error("pipeline: delivery sequence failed", "token", token, "delivery", outcome.DeliveryID, "err", err)
		return
	}
	slog.Info("pipeline: delivery finished", "token", token, "delivery", outcome.DeliveryID, "success", outcome.Success)
}
