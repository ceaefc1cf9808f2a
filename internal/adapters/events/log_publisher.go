package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

// LogPublisher writes submission outcomes to the application log. Accepted
// rows are logged at info, rejections at debug.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log.Named("events")}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.SubmissionEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("session", event.SessionID),
		zap.Time("occurred_at", event.OccurredAt),
	}

	switch event.EventType {
	case domain.EventRegistrationAccepted:
		if event.Record != nil {
			fields = append(fields, zap.Int64("row", event.Record.ID))
		}
		p.log.Info("registration accepted", fields...)
	case domain.EventRegistrationRejected:
		codes := make([]string, 0, len(event.Rejections))
		for _, kind := range event.Rejections {
			codes = append(codes, kind.Code())
		}
		fields = append(fields, zap.Strings("codes", codes))
		p.log.Debug("registration rejected", fields...)
	default:
		p.log.Warn("unknown submission event", fields...)
	}
	return nil
}
