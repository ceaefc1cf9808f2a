package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/regform/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/regform/internal/app"
	"github.com/atvirokodosprendimai/regform/internal/logger"
)

func main() {
	// Flags are not parsed yet, so startup failures go through a fixed
	// console logger.
	boot, err := logger.New("info", "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = boot.Sync() }()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		boot.Fatal("load .env", zap.Error(err))
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		boot.Fatal("regform failed", zap.Error(err))
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "regform",
		Usage: "Registration form handler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("REGFORM_LOG_LEVEL"),
				Usage:   "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "console",
				Sources: cli.EnvVars("REGFORM_LOG_FORMAT"),
				Usage:   "console or json",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			validateCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the registration form and JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("REGFORM_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   ":memory:",
				Sources: cli.EnvVars("REGFORM_DB_PATH"),
				Usage:   "SQLite file path, or :memory:",
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("REGFORM_SESSION_TTL"),
				Usage:   "How long a page session's table is kept",
			},
			&cli.StringFlag{
				Name:    "timestamp-layout",
				Value:   httpapi.DefaultStampLayout,
				Sources: cli.EnvVars("REGFORM_TIMESTAMP_LAYOUT"),
				Usage:   "Go time layout for the submitted-at column",
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Value:   5,
				Sources: cli.EnvVars("REGFORM_RATE_LIMIT"),
				Usage:   "Session creations and submissions per second per client IP, 0 disables",
			},
			&cli.StringSliceFlag{
				Name:    "trusted-proxies",
				Sources: cli.EnvVars("REGFORM_TRUSTED_PROXIES"),
				Usage:   "Proxy addresses or CIDRs whose X-Forwarded-For and X-Real-IP are honoured",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			zl, err := logger.New(c.String("log-level"), c.String("log-format"))
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()
			zap.ReplaceGlobals(zl)

			cfg := app.Config{
				Addr:            c.String("addr"),
				DBPath:          c.String("db-path"),
				SessionTTL:      c.Duration("session-ttl"),
				TimestampLayout: c.String("timestamp-layout"),
				RateLimit:       int(c.Int("rate-limit")),
				TrustedProxies:  c.StringSlice("trusted-proxies"),
				Logger:          zl,
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					zl.Error("close resources", zap.Error(closeErr))
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				zl.Info("listening", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				zl.Info("received signal", zap.Stringer("signal", sig))
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}
