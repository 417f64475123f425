package settings

import "github.com/formlock/formlock-backend/internal/infra/db"

// FormSettings are the per-form defaults a submission link may override.
type FormSettings struct {
	WebhookURL        *string
	WebhookIncludePDF bool
}

// SubmissionOverrides carry the submission-level values; nil means "no
// override, fall back to the form".
type SubmissionOverrides struct {
	WebhookURL        *string
	WebhookIncludePDF *bool
}

// Resolved is the effective configuration for one submission.
type Resolved struct {
	WebhookURL        *string
	WebhookIncludePDF bool
}

// Resolve applies submission-level overrides on top of form-level
// defaults, field by field.
func Resolve(form FormSettings, overrides SubmissionOverrides) Resolved {
	resolved := Resolved{
		WebhookURL:        form.WebhookURL,
		WebhookIncludePDF: form.WebhookIncludePDF,
	}
	if overrides.WebhookURL != nil {
		resolved.WebhookURL = overrides.WebhookURL
	}
	if overrides.WebhookIncludePDF != nil {
		resolved.WebhookIncludePDF = *overrides.WebhookIncludePDF
	}
	return resolved
}

// ForSubmission resolves directly from the persisted models.
func ForSubmission(form *db.Form, submission *db.Submission) Resolved {
	return Resolve(
		FormSettings{
			WebhookURL:        form.WebhookURL,
			WebhookIncludePDF: form.WebhookIncludePDF,
		},
		SubmissionOverrides{
			WebhookURL:        submission.WebhookURL,
			WebhookIncludePDF: submission.WebhookIncludePDF,
		},
	)
}
