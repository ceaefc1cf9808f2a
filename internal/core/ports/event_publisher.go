package ports

import (
	"context"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.SubmissionEvent) error
}
