package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/regform/internal/adapters/events"
	"github.com/atvirokodosprendimai/regform/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/regform/internal/adapters/metrics"
	sqliteadapter "github.com/atvirokodosprendimai/regform/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/regform/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/regform/internal/core/usecase"
	"github.com/atvirokodosprendimai/regform/migrations"
)

type Config struct {
	Addr            string
	DBPath          string
	SessionTTL      time.Duration
	TimestampLayout string
	// RateLimit is the number of submissions per second allowed per client
	// IP. Zero disables the limit.
	RateLimit int
	// TrustedProxies are the addresses or CIDR ranges allowed to name the
	// client through X-Forwarded-For or X-Real-IP.
	TrustedProxies []string
	Logger         *zap.Logger
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gormsqlite.Open(cfg.DBPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(ctx, writeSQLDB, log); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	schemaService, err := usecase.NewSchemaService()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	m := metrics.New()
	limiter, err := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		PerSecond:      cfg.RateLimit,
		TrustedProxies: cfg.TrustedProxies,
		OnLimited:      m.IncrementRateLimited,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}

	registrationService := usecase.NewRegistrationService(
		sqliteadapter.NewRegistrationRepository(db),
		usecase.WithSessionTTL(cfg.SessionTTL),
		usecase.WithPublishers(events.NewLogPublisher(log), m),
	)

	handler := httpapi.NewHandler(registrationService, schemaService, httpapi.Config{
		Limiter:     limiter,
		Metrics:     m.Handler(),
		Logger:      log,
		StampLayout: cfg.TimestampLayout,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http.server")),
	}

	return server, resourceCloser{closers: []io.Closer{db}}, nil
}
