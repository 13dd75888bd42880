package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/kudos/client"
	"github.com/gabrielmiguelok/kudos/internal/config"
	"github.com/gabrielmiguelok/kudos/internal/feedback"
	"github.com/gabrielmiguelok/kudos/pkg/health"
	"github.com/gabrielmiguelok/kudos/pkg/limits"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/metrics"
	"github.com/gabrielmiguelok/kudos/pkg/router"
	"github.com/gabrielmiguelok/kudos/pkg/shutdown"
	"github.com/gabrielmiguelok/kudos/pkg/transport"
)

var serveFlags struct {
	addr    string
	dev     bool
	webhook string
	nats    string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard as a live web page",
	Long: `Serve the wizard over HTTP. Each browser tab gets its own wizard,
kept on the server and updated over a WebSocket.

Besides the wizard at /, the server exposes /healthz, /readyz and /metrics.`,
	RunE: runServe,
}

var serveKeys = map[string]string{
	"server.addr":              "addr",
	"server.insecure_dev_mode": "dev",
	"submit.webhook.url":       "webhook",
	"submit.nats.url":          "nats",
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dev, "dev", false, "Accept WebSocket connections from any origin")
	serveCmd.Flags().StringVar(&serveFlags.webhook, "webhook", "", "POST each submission to this URL")
	serveCmd.Flags().StringVar(&serveFlags.nats, "nats", "", `Publish submissions to this NATS server ("embedded" runs one in process)`)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, serveKeys)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logging.SetDefault(logger)

	out, err := buildSinks(cfg.Submit, logger)
	if err != nil {
		return err
	}

	m := metrics.New("kudos")
	r := newRouter(cfg, logger, m, out)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sh := shutdown.NewHandler(
		shutdown.WithTimeout(cfg.Timeouts.Shutdown),
		shutdown.WithLogger(logger),
	)
	registerHooks(sh, srv, r, out)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			logging.String("addr", cfg.Server.Addr),
			logging.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- sh.Wait(cmd.Context()) }()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("server failed", logging.Err(err))
			_ = sh.Shutdown(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
		return <-waitErr
	case err := <-waitErr:
		return err
	}
}

// registerHooks orders shutdown: stop accepting requests, end the live
// sessions, let submissions already underway finish, then close NATS.
func registerHooks(sh *shutdown.Handler, srv *http.Server, r *router.Router, out *sinks) {
	sh.RegisterFunc("http", shutdown.PriorityHTTP, srv.Shutdown)
	sh.RegisterFunc("live views", shutdown.PriorityLiveViews, r.Shutdown)
	sh.RegisterFunc("submissions", shutdown.PrioritySubmit, out.wait)
	sh.RegisterFunc("nats", shutdown.PriorityBroker, func(ctx context.Context) error {
		return out.close(remaining(ctx, 5*time.Second))
	})
}

// newRouter builds the HTTP surface: the wizard, its assets, health and
// metrics.
func newRouter(cfg *config.Config, logger logging.Logger, m *metrics.Metrics, out *sinks) *router.Router {
	r := router.New(
		router.WithLogger(logger),
		router.WithMetrics(m),
		router.WithTimeouts(cfg.Timeouts.Core()),
		router.WithOriginPolicy(&transport.WebSocketConfig{
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			InsecureDevMode: cfg.Server.InsecureDevMode,
		}),
		router.WithCodec(cfg.Server.Codec),
		router.WithConnectionLimiter(limits.NewConnectionLimiter(cfg.Server.MaxPerIP, cfg.Server.MaxSessions)),
		router.WithEventRate(cfg.Server.EventRate, cfg.Server.EventBurst),
	)
	r.Use(
		router.RequestID(),
		logging.RequestLogger(logger),
		router.Recovery(logger),
		router.SecureHeaders(),
	)

	r.Live("/{$}", feedback.Factory(feedback.Options{
		Submitter:     out.submitter,
		Metrics:       m,
		Logger:        logger,
		Delay:         cfg.Wizard.CompletionDelay,
		ConfettiCount: cfg.Wizard.ConfettiCount,
		SubmitTimeout: cfg.Submit.Timeout,
	}), router.WithTitle(cfg.Wizard.Title))
	r.Handle(router.DefaultAssetPrefix, http.StripPrefix(router.DefaultAssetPrefix, client.Handler()))

	checker := health.NewChecker(version)
	checker.AddCriticalCheck("sessions", health.CapacityCheck(r.Sessions().Count, cfg.Server.MaxSessions), time.Second)
	if out.conn != nil {
		checker.AddCriticalCheck("nats", natsCheck(out.conn), 2*time.Second)
	}
	r.Handle("/healthz", checker.LivenessHandler())
	r.Handle("/readyz", checker.ReadinessHandler())
	r.Handle("/metrics", m.Handler())

	return r
}

func natsCheck(conn *nats.Conn) health.CheckFunc {
	return func(ctx context.Context) error {
		if !conn.IsConnected() {
			return fmt.Errorf("nats: %s", conn.Status())
		}
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
		}
		return conn.FlushWithContext(ctx)
	}
}

// remaining returns the time left before ctx expires, or def when ctx has
// no deadline.
func remaining(ctx context.Context, def time.Duration) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left > 0 {
			return left
		}
		return 0
	}
	return def
}
