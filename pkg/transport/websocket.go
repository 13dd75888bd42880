package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
)

// WebSocketTransport is one WebSocket connection, server or client side.
// Frames are encoded with the transport's codec; binary codecs use binary
// frames.
type WebSocketTransport struct {
	config   *Config
	wsConfig *WebSocketConfig
	codec    protocol.Codec
	logger   logging.Logger

	conn      *websocket.Conn
	connected atomic.Bool

	sendCh  chan *protocol.Message
	recvCh  chan *protocol.Message
	closeCh chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
	loops     sync.WaitGroup
}

// Option configures a WebSocketTransport.
type Option func(*WebSocketTransport)

// WithCodec sets the frame codec. JSON is the default.
func WithCodec(c protocol.Codec) Option {
	return func(t *WebSocketTransport) {
		t.codec = c
	}
}

// WithOriginPolicy sets the upgrade origin policy.
func WithOriginPolicy(c *WebSocketConfig) Option {
	return func(t *WebSocketTransport) {
		if c != nil {
			t.wsConfig = c
		}
	}
}

// WithLogger sets the logger used for dropped frames.
func WithLogger(l logging.Logger) Option {
	return func(t *WebSocketTransport) {
		t.logger = l
	}
}

// NewWebSocketTransport creates an unconnected transport.
func NewWebSocketTransport(config *Config, opts ...Option) *WebSocketTransport {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &WebSocketTransport{
		config:   config,
		wsConfig: DefaultWebSocketConfig(),
		codec:    protocol.NewJSONCodec(),
		logger:   logging.NopLogger{},
		sendCh:   make(chan *protocol.Message, config.SendBufferSize),
		recvCh:   make(chan *protocol.Message, config.ReceiveBufferSize),
		closeCh:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WebSocketTransport) isOriginAllowed(origin, requestHost string) bool {
	if t.wsConfig.InsecureDevMode {
		return true
	}
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Host == requestHost {
		return true
	}

	for _, allowed := range t.wsConfig.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host != "" && allowedURL.Host == originURL.Host {
			return true
		}
	}
	return false
}

// Upgrade accepts a WebSocket handshake on w. The origin is checked first;
// a rejected origin gets a 403 and ErrOriginNotAllowed.
func (t *WebSocketTransport) Upgrade(w http.ResponseWriter, r *http.Request) error {
	if !t.isOriginAllowed(r.Header.Get("Origin"), r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return ErrOriginNotAllowed
	}

	// The origin has been checked above; the library's own check would
	// reject the extra allowed origins.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return fmt.Errorf("accept websocket: %w", err)
	}

	t.start(conn)
	return nil
}

// Dial connects to a live endpoint as a client.
func (t *WebSocketTransport) Dial(ctx context.Context, rawURL string) error {
	conn, _, err := websocket.Dial(ctx, rawURL, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	t.start(conn)
	return nil
}

func (t *WebSocketTransport) start(conn *websocket.Conn) {
	conn.SetReadLimit(t.config.MaxMessageSize)
	t.conn = conn
	t.connected.Store(true)

	t.loops.Add(3)
	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()
}

// Codec returns the frame codec.
func (t *WebSocketTransport) Codec() protocol.Codec {
	return t.codec
}

// IsConnected reports whether the connection is open.
func (t *WebSocketTransport) IsConnected() bool {
	return t.connected.Load()
}

// Receive returns decoded client frames. It is never closed; select on
// Done as well.
func (t *WebSocketTransport) Receive() <-chan *protocol.Message {
	return t.recvCh
}

// Done is closed when the connection ends.
func (t *WebSocketTransport) Done() <-chan struct{} {
	return t.closeCh
}

// Send queues msg for writing.
func (t *WebSocketTransport) Send(msg *protocol.Message) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	timer := time.NewTimer(t.config.WriteTimeout)
	defer timer.Stop()

	select {
	case t.sendCh <- msg:
		return nil
	case <-t.closeCh:
		return ErrConnectionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// Close ends the connection with a normal closure. It is safe to call more
// than once and from any goroutine.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.connected.Store(false)
		close(t.closeCh)
		if t.conn != nil {
			err := t.conn.Close(websocket.StatusNormalClosure, "closing")
			if err != nil && !isCloseError(err) {
				t.closeErr = err
			}
		}
		t.cancel()
	})
	return t.closeErr
}

// Wait blocks until the read, write and ping loops have exited.
func (t *WebSocketTransport) Wait() {
	t.loops.Wait()
}

func isCloseError(err error) bool {
	if websocket.CloseStatus(err) != -1 {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled)
}

func (t *WebSocketTransport) readLoop() {
	defer t.loops.Done()
	defer t.Close()

	for {
		ctx, cancel := context.WithTimeout(t.ctx, t.config.ReadTimeout)
		_, data, err := t.conn.Read(ctx)
		cancel()
		if err != nil {
			return
		}

		msg, err := t.codec.Decode(data)
		if err != nil {
			t.logger.Debug("dropping undecodable frame", logging.Err(err), logging.Int("bytes", len(data)))
			continue
		}

		select {
		case t.recvCh <- msg:
		case <-t.closeCh:
			return
		default:
			t.logger.Warn("receive buffer full, dropping frame", logging.String("event", msg.Event))
		}
	}
}

func (t *WebSocketTransport) writeLoop() {
	defer t.loops.Done()

	frame := websocket.MessageText
	if t.codec.Binary() {
		frame = websocket.MessageBinary
	}

	for {
		select {
		case msg := <-t.sendCh:
			data, err := t.codec.Encode(msg)
			if err != nil {
				t.logger.Error("encode frame", logging.Err(err), logging.String("event", msg.Event))
				continue
			}

			ctx, cancel := context.WithTimeout(t.ctx, t.config.WriteTimeout)
			err = t.conn.Write(ctx, frame, data)
			cancel()
			if err != nil {
				t.Close()
				return
			}

		case <-t.closeCh:
			return
		}
	}
}

func (t *WebSocketTransport) pingLoop() {
	defer t.loops.Done()

	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(t.ctx, t.config.WriteTimeout)
			t.conn.Ping(ctx)
			cancel()
		case <-t.closeCh:
			return
		}
	}
}
