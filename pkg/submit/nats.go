package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
)

// EventSubmission is the protocol event carried by published submissions.
const EventSubmission = "submission"

// DefaultSubject is the subject prefix submissions are published under.
const DefaultSubject = "kudos.submissions"

// ErrNATSNotReady is returned when an embedded server does not start in time.
var ErrNATSNotReady = errors.New("nats server not ready")

// NATSPublisher publishes each submission as a protocol message on
// <subject>.<outcome>, encoded with the configured codec.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	codec   protocol.Codec
	logger  logging.Logger
}

// NATSOption configures a NATSPublisher.
type NATSOption func(*NATSPublisher)

// WithSubject sets the subject prefix.
func WithSubject(subject string) NATSOption {
	return func(p *NATSPublisher) { p.subject = subject }
}

// WithNATSCodec sets the payload codec.
func WithNATSCodec(c protocol.Codec) NATSOption {
	return func(p *NATSPublisher) { p.codec = c }
}

// WithNATSLogger sets the logger.
func WithNATSLogger(l logging.Logger) NATSOption {
	return func(p *NATSPublisher) { p.logger = l }
}

// NewNATSPublisher publishes on conn. The publisher does not own conn.
func NewNATSPublisher(conn *nats.Conn, opts ...NATSOption) *NATSPublisher {
	p := &NATSPublisher{
		conn:    conn,
		subject: DefaultSubject,
		codec:   protocol.NewJSONCodec(),
		logger:  logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Named.
func (p *NATSPublisher) Name() string { return "nats" }

// Subject returns the subject s is published on.
func (p *NATSPublisher) Subject(s Submission) string {
	return p.subject + "." + s.Outcome
}

// Submit implements Submitter. It waits for the server to acknowledge the
// publish by flushing, bounded by ctx.
func (p *NATSPublisher) Submit(ctx context.Context, s Submission) error {
	msg := protocol.NewMessage(p.subject, EventSubmission, s.Payload())
	msg.Ref = s.ID
	data, err := p.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	out := nats.NewMsg(p.Subject(s))
	out.Data = data
	out.Header.Set("Content-Type", p.codec.ContentType())
	out.Header.Set(nats.MsgIdHdr, s.ID)

	if err := p.conn.PublishMsg(out); err != nil {
		return fmt.Errorf("publish %s: %w", out.Subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", out.Subject, err)
	}
	p.logger.Debug("submission published",
		logging.String("submission_id", s.ID),
		logging.String("subject", out.Subject),
	)
	return nil
}

// Decode reads a published submission back into a protocol message.
func (p *NATSPublisher) Decode(m *nats.Msg) (*protocol.Message, error) {
	return p.codec.Decode(m.Data)
}

// StartEmbedded runs an in-process NATS server that accepts no network
// connections, for single-binary deployments and tests.
func StartEmbedded() (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{DontListen: true, NoSigs: true})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		ns.Shutdown()
		return nil, ErrNATSNotReady
	}
	return ns, nil
}

// Connect dials url, or the embedded server ns when it is not nil.
func Connect(url string, ns *server.Server, name string) (*nats.Conn, error) {
	opts := []nats.Option{nats.Name(name)}
	if ns != nil {
		opts = append(opts, nats.InProcessServer(ns))
		url = ""
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// Drain drains conn, closing it outright if draining takes longer than
// timeout, then shuts down ns if set.
func Drain(conn *nats.Conn, ns *server.Server, timeout time.Duration) error {
	var errs []error
	if conn != nil {
		done := make(chan error, 1)
		go func() {
			if err := conn.Drain(); err != nil {
				done <- err
				return
			}
			for !conn.IsClosed() {
				time.Sleep(10 * time.Millisecond)
			}
			done <- nil
		}()
		select {
		case err := <-done:
			if err != nil {
				conn.Close()
				errs = append(errs, fmt.Errorf("drain nats: %w", err))
			}
		case <-time.After(timeout):
			conn.Close()
			errs = append(errs, errors.New("drain nats: timed out"))
		}
	}
	if ns != nil {
		ns.Shutdown()
		ns.WaitForShutdown()
	}
	return errors.Join(errs...)
}
