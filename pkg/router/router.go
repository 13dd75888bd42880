// Package router serves live views over HTTP and WebSocket.
package router

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/limits"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/metrics"
	"github.com/gabrielmiguelok/kudos/pkg/pool"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
	"github.com/gabrielmiguelok/kudos/pkg/transport"
)

// DefaultAssetPrefix is where the page shell loads the client from.
const DefaultAssetPrefix = "/_live/"

// LiveRoute is a path rendered by a live component.
type LiveRoute struct {
	Path      string
	Title     string
	Component func() core.Component
}

// RouteOption configures a LiveRoute.
type RouteOption func(*LiveRoute)

// WithTitle sets the page title of the static render.
func WithTitle(title string) RouteOption {
	return func(r *LiveRoute) { r.Title = title }
}

// Router dispatches plain requests to handlers and live routes to
// components. A GET on a live route renders the page; a WebSocket upgrade on
// the same path starts a live session.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware

	logger      logging.Logger
	metrics     *metrics.Metrics
	timeouts    core.TimeoutConfig
	wsConfig    *transport.WebSocketConfig
	codecName   string
	assetPrefix string
	connLimiter *limits.ConnectionLimiter
	eventRate   float64
	eventBurst  int

	sessions *SessionManager
	sockets  *core.SocketManager
	closing  atomic.Bool

	mu sync.RWMutex
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics records session and render metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithTimeouts replaces the lifecycle timeouts.
func WithTimeouts(t core.TimeoutConfig) Option {
	return func(r *Router) { r.timeouts = t }
}

// WithOriginPolicy sets the WebSocket origin policy.
func WithOriginPolicy(c *transport.WebSocketConfig) Option {
	return func(r *Router) { r.wsConfig = c }
}

// WithCodec sets the codec used when the client does not pick one with
// the vsn query parameter.
func WithCodec(name string) Option {
	return func(r *Router) { r.codecName = name }
}

// WithAssetPrefix sets the URL prefix of the client script and stylesheet.
func WithAssetPrefix(prefix string) Option {
	return func(r *Router) { r.assetPrefix = prefix }
}

// WithConnectionLimiter caps live sessions per client and overall.
func WithConnectionLimiter(cl *limits.ConnectionLimiter) Option {
	return func(r *Router) { r.connLimiter = cl }
}

// WithEventRate throttles browser events per session. Zero disables it.
func WithEventRate(perSecond float64, burst int) Option {
	return func(r *Router) {
		r.eventRate = perSecond
		r.eventBurst = burst
	}
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      logging.NopLogger{},
		timeouts:    core.DefaultTimeoutConfig(),
		wsConfig:    transport.DefaultWebSocketConfig(),
		codecName:   "json",
		assetPrefix: DefaultAssetPrefix,
		sessions:    NewSessionManager(),
		sockets:     core.NewSocketManager(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use appends middleware applied to every request.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// Handle registers a plain handler.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// HandleFunc registers a plain handler function.
func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, h)
}

// Live registers a live route. factory is called once per page load and
// once per live session.
func (r *Router) Live(path string, factory func() core.Component, opts ...RouteOption) {
	route := &LiveRoute{Path: path, Component: factory}
	for _, opt := range opts {
		opt(route)
	}
	r.mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if isWebSocketRequest(req) {
			r.serveSocket(w, req, route)
			return
		}
		r.servePage(w, req, route)
	})
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	var h http.Handler = r.mux
	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i](h)
	}
	r.mu.RUnlock()
	h.ServeHTTP(w, req)
}

// Sessions returns the live session registry.
func (r *Router) Sessions() *SessionManager {
	return r.sessions
}

// Sockets returns the live socket registry.
func (r *Router) Sockets() *core.SocketManager {
	return r.sockets
}

// Shutdown refuses new live sessions, cancels the running ones and waits
// for them to terminate. Sockets still open when ctx expires are closed
// outright.
func (r *Router) Shutdown(ctx context.Context) error {
	r.closing.Store(true)
	for _, s := range r.sessions.All() {
		s.cancel()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for r.sessions.Count() > 0 {
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), r.sockets.CloseAll(context.Background()))
		case <-ticker.C:
		}
	}
	return nil
}

func (r *Router) requestLogger(req *http.Request) logging.Logger {
	if l := logging.LoggerFromContext(req.Context()); l != nil {
		return l
	}
	return r.logger
}

func (r *Router) servePage(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	logger := r.requestLogger(req)
	component := route.Component()
	params := extractParams(req)
	session := extractSession(req)
	ctx := core.BuildContext(req.Context(), nil, session, params)

	mctx, cancel := context.WithTimeout(ctx, r.timeouts.ComponentMount)
	err := component.Mount(mctx, params, session)
	cancel()
	if err != nil {
		r.metrics.Error("mount")
		logger.Error("mount failed", logging.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	renderer := component.Render(ctx)
	if renderer == nil {
		logger.Error("render failed", logging.Err(ErrNilRenderer))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := renderer.Render(ctx, buf); err != nil {
		r.metrics.Error("render")
		logger.Error("render failed", logging.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = writePage(w, Page{
		Title:       route.Title,
		Path:        req.URL.Path,
		Codec:       r.codecName,
		AssetPrefix: r.assetPrefix,
		Nonce:       GetCSPNonce(req.Context()),
		Body:        buf.String(),
	})
	if err != nil {
		logger.Warn("write page", logging.Err(err))
	}
}

func (r *Router) serveSocket(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	logger := r.requestLogger(req)

	if r.closing.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	ip := limits.ClientIP(req)
	if r.connLimiter != nil {
		if !r.connLimiter.Acquire(ip) {
			logger.Warn("connection limit reached", logging.String("ip", ip))
			http.Error(w, "too many connections", http.StatusTooManyRequests)
			return
		}
		defer r.connLimiter.Release(ip)
	}

	codecName := req.URL.Query().Get("vsn")
	if codecName == "" {
		codecName = r.codecName
	}
	codec, err := protocol.Lookup(codecName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws := transport.NewWebSocketTransport(r.transportConfig(),
		transport.WithCodec(codec),
		transport.WithOriginPolicy(r.wsConfig),
		transport.WithLogger(logger),
	)
	if err := ws.Upgrade(w, req); err != nil {
		logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}
	defer ws.Wait()

	id := uuid.NewString()
	logger = logger.With(logging.String("session_id", id))
	socket := core.NewSocket(id, NewTransportAdapter(ws))

	component := route.Component()
	if sc, ok := component.(interface{ SetSocket(*core.Socket) }); ok {
		sc.SetSocket(socket)
	}

	params := extractParams(req)
	session := extractSession(req)
	session["session_id"] = id

	// The connection outlives the upgrade request; keep its values only.
	ctx, cancel := context.WithCancel(context.WithoutCancel(req.Context()))
	defer cancel()
	ctx = core.BuildContext(ctx, socket, session, params)
	ctx = logging.ContextWithLogger(ctx, logger)

	ls := &LiveSession{
		ID:        id,
		Component: component,
		Socket:    socket,
		Params:    params,
		Session:   session,
		CreatedAt: time.Now(),
		conn:      ws,
		logger:    logger,
		metrics:   r.metrics,
		timeouts:  r.timeouts,
		events:    limits.NewBucket(r.eventRate, r.eventBurst),
		cancel:    cancel,
	}

	r.sessions.Add(ls)
	r.sockets.Add(socket)
	r.metrics.SessionOpened()
	defer func() {
		r.sessions.Remove(id)
		r.sockets.Remove(id)
		r.metrics.SessionClosed()
	}()

	logger.Info("live session opened",
		logging.String("component", component.Name()),
		logging.String("codec", codec.Name()),
	)
	ls.terminate(ls.run(ctx))
}

func (r *Router) transportConfig() *transport.Config {
	cfg := transport.DefaultConfig()
	cfg.ReadTimeout = r.timeouts.WebSocketRead
	cfg.WriteTimeout = r.timeouts.WebSocketWrite
	cfg.PingInterval = r.timeouts.WebSocketPing
	return cfg
}

func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if key == "vsn" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return params
}

func extractSession(req *http.Request) core.Session {
	return core.Session{
		"request_id": GetRequestID(req.Context()),
		"remote_ip":  limits.ClientIP(req),
		"user_agent": req.UserAgent(),
	}
}

func isWebSocketRequest(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Upgrade"), "websocket")
}
