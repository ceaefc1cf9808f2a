package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidSession = errors.New("invalid session id")
)

// StatusAccepted is the only status a stored registration ever carries.
const StatusAccepted = "Accepted"

// DateLayout is the ISO calendar date format used for birth dates.
const DateLayout = "2006-01-02"

// RegistrationInput is the raw state of the registration form at submit time.
// String fields may carry surrounding whitespace; BirthDate is yyyy-mm-dd or empty.
type RegistrationInput struct {
	FullName      string
	Email         string
	Phone         string
	BirthDate     string
	TermsAccepted bool
}

// Accept validates the input against the date of at and, when every field
// passes, builds the record to append. The record is the zero value otherwise.
func (in RegistrationInput) Accept(sessionID string, at time.Time) (RegistrationRecord, ValidationResult) {
	result := in.Validate(at)
	if !result.Valid {
		return RegistrationRecord{}, result
	}
	return RegistrationRecord{
		SessionID:   sessionID,
		SubmittedAt: at,
		FullName:    strings.TrimSpace(in.FullName),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		BirthDate:   strings.TrimSpace(in.BirthDate),
		Status:      StatusAccepted,
	}, result
}

// RegistrationRecord is one row of a session's results table.
type RegistrationRecord struct {
	ID          int64
	SessionID   string
	SubmittedAt time.Time
	FullName    string
	Email       string
	Phone       string
	BirthDate   string
	Status      string
}

// Stamp renders SubmittedAt in local time using layout.
func (r RegistrationRecord) Stamp(layout string) string {
	return r.SubmittedAt.Local().Format(layout)
}

// Session scopes one results table to a single page load.
type Session struct {
	ID        string
	CreatedAt time.Time
}

func NewSession(now time.Time) Session {
	return Session{ID: uuid.NewString(), CreatedAt: now.UTC()}
}

func ValidateSessionID(id string) error {
	if id == "" || uuid.Validate(id) != nil {
		return ErrInvalidSession
	}
	return nil
}
