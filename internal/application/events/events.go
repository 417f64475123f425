package events

import "time"

// SubmissionLocked is emitted after the lock transition commits and feeds
// the post-submission pipeline.
type SubmissionLocked struct {
	SubmissionID uint64
	FormID       uint64
	Token        string
	LockedAt     time.Time
}

func (e SubmissionLocked) GetType() string {
	return "SubmissionLocked"
}
