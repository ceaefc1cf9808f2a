package domain

import "time"

const (
	EventRegistrationAccepted = "registration.accepted"
	EventRegistrationRejected = "registration.rejected"
)

// SubmissionEvent describes the outcome of one form submission. Record is set
// for accepted submissions, Rejections for rejected ones.
type SubmissionEvent struct {
	EventID    string
	EventType  string
	SessionID  string
	OccurredAt time.Time
	Record     *RegistrationRecord
	Rejections []ErrorKind
}
