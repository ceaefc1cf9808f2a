package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
	"github.com/atvirokodosprendimai/regform/internal/core/ports"
)

// ErrRejected is returned by Submit when at least one field failed validation.
var ErrRejected = errors.New("registration rejected")

const defaultSessionTTL = 24 * time.Hour

type RegistrationService struct {
	repo       ports.RegistrationRepository
	publishers []ports.EventPublisher
	now        func() time.Time
	sessionTTL time.Duration
}

type RegistrationOption func(*RegistrationService)

// WithClock overrides the time source used for "today" and submission stamps.
func WithClock(now func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithPublishers(publishers ...ports.EventPublisher) RegistrationOption {
	return func(s *RegistrationService) {
		s.publishers = append(s.publishers, publishers...)
	}
}

// WithSessionTTL sets how long a session's table is kept. Zero or negative
// keeps the default.
func WithSessionTTL(ttl time.Duration) RegistrationOption {
	return func(s *RegistrationService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func NewRegistrationService(repo ports.RegistrationRepository, opts ...RegistrationOption) *RegistrationService {
	s := &RegistrationService{repo: repo, now: time.Now, sessionTTL: defaultSessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs the field rules against the current date without side effects.
func (s *RegistrationService) Validate(input domain.RegistrationInput) domain.ValidationResult {
	return input.Validate(s.now())
}

// OpenSession starts a new, empty results table and drops expired ones.
func (s *RegistrationService) OpenSession(ctx context.Context) (domain.Session, error) {
	now := s.now()
	if _, err := s.repo.PruneSessions(ctx, now.Add(-s.sessionTTL).UTC()); err != nil {
		return domain.Session{}, fmt.Errorf("prune sessions: %w", err)
	}

	session := domain.NewSession(now)
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Submit validates input and appends it to the session's table when every
// field passes. A rejected submission returns ErrRejected together with the
// validation result and leaves the table untouched. The session is resolved
// first, so an unknown session is ErrNotFound whatever the input.
func (s *RegistrationService) Submit(ctx context.Context, sessionID string, input domain.RegistrationInput) (domain.RegistrationRecord, domain.ValidationResult, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.RegistrationRecord{}, domain.ValidationResult{}, err
	}
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return domain.RegistrationRecord{}, domain.ValidationResult{}, err
	}

	now := s.now()
	rec, result := input.Accept(sessionID, now)
	if !result.Valid {
		s.publish(ctx, domain.SubmissionEvent{
			EventType:  domain.EventRegistrationRejected,
			SessionID:  sessionID,
			OccurredAt: now,
			Rejections: result.Kinds(),
		})
		return domain.RegistrationRecord{}, result, ErrRejected
	}

	saved, err := s.repo.Append(ctx, rec)
	if err != nil {
		return domain.RegistrationRecord{}, result, err
	}

	s.publish(ctx, domain.SubmissionEvent{
		EventType:  domain.EventRegistrationAccepted,
		SessionID:  sessionID,
		OccurredAt: now,
		Record:     &saved,
	})
	return saved, result, nil
}

// List returns the session's rows in the order they were appended.
func (s *RegistrationService) List(ctx context.Context, sessionID string) ([]domain.RegistrationRecord, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, sessionID)
}

func (s *RegistrationService) publish(ctx context.Context, event domain.SubmissionEvent) {
	event.EventID = uuid.NewString()
	for _, p := range s.publishers {
		_ = p.Publish(ctx, event)
	}
}
