package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

// RegistrationRepository stores sessions and their append-only results tables.
// GetSession, Append and List return domain.ErrNotFound for an unknown session.
type RegistrationRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	PruneSessions(ctx context.Context, createdBefore time.Time) (int64, error)
	Append(ctx context.Context, rec domain.RegistrationRecord) (domain.RegistrationRecord, error)
	List(ctx context.Context, sessionID string) ([]domain.RegistrationRecord, error)
}
