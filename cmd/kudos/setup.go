package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gabrielmiguelok/kudos/internal/config"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
	"github.com/gabrielmiguelok/kudos/pkg/retry"
	"github.com/gabrielmiguelok/kudos/pkg/submit"
)

// loadConfig reads the configuration for cmd. keys maps configuration keys
// to the names of the flags that override them.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	flags := map[string]*pflag.Flag{
		"log.level": cmd.Flags().Lookup("log-level"),
	}
	for key, name := range keys {
		flags[key] = cmd.Flags().Lookup(name)
	}

	cfg, err := config.Load(rootFlags.config, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// openLogger builds the logger. It writes to the configured file, or to
// fallback when none is set.
func openLogger(c config.LogConfig, fallback io.Writer) (logging.Logger, func() error, error) {
	w, closeFn := fallback, func() error { return nil }
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w, closeFn = f, f.Close
	}
	if w == nil {
		return logging.NopLogger{}, closeFn, nil
	}

	logger, err := logging.New(c.Level, c.Format, w)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}

// sinks holds the configured submitters and the NATS connection behind
// one of them.
type sinks struct {
	submitter submit.Submitter
	pending   *submit.Tracker
	conn      *nats.Conn
	server    *server.Server
}

// buildSinks wires every submitter enabled in c.
func buildSinks(c config.SubmitConfig, logger logging.Logger) (*sinks, error) {
	var (
		out   sinks
		multi submit.Multi
	)

	if c.Log {
		multi = append(multi, submit.LogSubmitter{Logger: logger})
	}

	if c.Webhook.URL != "" {
		rc := retry.DefaultConfig()
		rc.MaxRetries = c.Webhook.MaxRetries
		if c.Webhook.InitialDelay > 0 {
			rc.InitialDelay = c.Webhook.InitialDelay
		}
		if c.Webhook.MaxDelay > 0 {
			rc.MaxDelay = c.Webhook.MaxDelay
		}

		opts := []submit.WebhookOption{
			submit.WithRetry(rc),
			submit.WithWebhookLogger(logger),
		}
		for k, v := range c.Webhook.Headers {
			opts = append(opts, submit.WithHeader(k, v))
		}
		multi = append(multi, submit.NewWebhookSubmitter(c.Webhook.URL, opts...))
		logger.Info("webhook submitter enabled", logging.String("url", c.Webhook.URL))
	}

	if c.NATS.URL != "" {
		url := c.NATS.URL
		if url == config.NATSEmbedded {
			ns, err := submit.StartEmbedded()
			if err != nil {
				return nil, err
			}
			out.server = ns
			url = ""
		}

		conn, err := submit.Connect(url, out.server, "kudos")
		if err != nil {
			if out.server != nil {
				out.server.Shutdown()
			}
			return nil, err
		}
		out.conn = conn

		codec, err := protocol.Lookup(c.NATS.Codec)
		if err != nil {
			_ = out.close(time.Second)
			return nil, err
		}
		multi = append(multi, submit.NewNATSPublisher(conn,
			submit.WithSubject(c.NATS.Subject),
			submit.WithNATSCodec(codec),
			submit.WithNATSLogger(logger),
		))
		logger.Info("nats submitter enabled",
			logging.String("url", c.NATS.URL),
			logging.String("subject", c.NATS.Subject))
	}

	switch len(multi) {
	case 0:
		logger.Warn("no submitter enabled, answers will be discarded")
		return &out, nil
	case 1:
		out.pending = submit.Track(multi[0])
	default:
		out.pending = submit.Track(multi)
	}
	out.submitter = out.pending
	return &out, nil
}

// wait blocks until every submission in flight has been delivered or ctx
// is done.
func (s *sinks) wait(ctx context.Context) error {
	if s.pending == nil {
		return nil
	}
	return s.pending.Wait(ctx)
}

// close drains the NATS connection and stops the embedded server.
func (s *sinks) close(timeout time.Duration) error {
	if s.conn == nil && s.server == nil {
		return nil
	}
	return submit.Drain(s.conn, s.server, timeout)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
