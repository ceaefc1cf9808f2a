package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

func TestLogPublisherAccepted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	pub := NewLogPublisher(zap.New(core))

	err := pub.Publish(context.Background(), domain.SubmissionEvent{
		EventID:    "evt-1",
		EventType:  domain.EventRegistrationAccepted,
		SessionID:  "s-1",
		OccurredAt: time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC),
		Record:     &domain.RegistrationRecord{ID: 7},
	})
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "registration accepted", entries[0].Message)
	assert.Equal(t, "events", entries[0].LoggerName)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "evt-1", ctx["event_id"])
	assert.Equal(t, "s-1", ctx["session"])
	assert.Equal(t, int64(7), ctx["row"])
}

func TestLogPublisherRejectedAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	pub := NewLogPublisher(zap.New(core))

	err := pub.Publish(context.Background(), domain.SubmissionEvent{
		EventType:  domain.EventRegistrationRejected,
		Rejections: []domain.ErrorKind{domain.NameRequired, domain.TermsNotAccepted},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("registration rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, []interface{}{"NAME_REQUIRED", "TERMS_NOT_ACCEPTED"}, entries[0].ContextMap()["codes"])
}

func TestLogPublisherNilLogger(t *testing.T) {
	pub := NewLogPublisher(nil)
	assert.NoError(t, pub.Publish(context.Background(), domain.SubmissionEvent{EventType: "other"}))
}
