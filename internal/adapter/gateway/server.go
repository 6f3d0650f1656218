// Package gateway exposes the WebSocket chat gateway and the HTTP API on
// a single listener. The server implements domain.Emitter so the chat
// service can push events to individual connections.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/eventbus"
	"skillsocket/internal/usecase/presence"
)

// Session is the per-connection state passed to RPC handlers. UserID is
// empty until the connection completes chat.join.
type Session struct {
	ConnID uint64
	Client *ClientInfo
	UserID string
}

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, sess *Session, payload json.RawMessage) (json.RawMessage, error)

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	connID    uint64
	info      *ClientInfo
	ws        *websocket.Conn
	sendCh    chan Frame // buffered outbound queue
	reqCh     chan Frame // inbound requests, dispatched in arrival order
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	userID string // set by chat.join
}

func (c *clientConn) setUser(id string) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

func (c *clientConn) user() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Server is the WebSocket gateway that exposes RPC methods, forwards
// conn-targeted events and serves the HTTP API.
type Server struct {
	auth       Authenticator
	presence   *presence.Registry
	bus        *eventbus.Bus
	clients    sync.Map // connID (uint64) -> *clientConn
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	logger     *slog.Logger
	addr       string
	queueSize  int
	httpSrv    *http.Server
	boundAddr  string
	nextID     atomic.Uint64
	httpRoutes []httpRoute
	middleware []func(http.Handler) http.Handler
	onUserGone func(userID string)
}

type httpRoute struct {
	pattern string
	handler http.HandlerFunc
}

// NewServer creates a gateway server. queueSize bounds each connection's
// outbound event queue; a full queue drops events and reports the client
// as offline.
func NewServer(auth Authenticator, pres *presence.Registry, bus *eventbus.Bus, addr string, queueSize int, logger *slog.Logger) *Server {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Server{
		auth:      auth,
		presence:  pres,
		bus:       bus,
		handlers:  make(map[string]RPCHandler),
		logger:    logger,
		addr:      addr,
		queueSize: queueSize,
	}
}

// RegisterHandler adds an RPC handler for the given method name.
// Safe to call concurrently with active connections.
func (s *Server) RegisterHandler(method string, handler RPCHandler) {
	s.handlersMu.Lock()
	s.handlers[method] = handler
	s.handlersMu.Unlock()
}

// RegisterHTTPRoute adds an HTTP handler to the gateway's mux.
// Must be called before Start().
func (s *Server) RegisterHTTPRoute(pattern string, handler http.HandlerFunc) {
	s.httpRoutes = append(s.httpRoutes, httpRoute{pattern: pattern, handler: handler})
}

// Use appends middleware applied to every HTTP route, the websocket
// upgrade included. Must be called before Start().
func (s *Server) Use(mw ...func(http.Handler) http.Handler) {
	s.middleware = append(s.middleware, mw...)
}

// SetDisconnectHook registers a callback invoked with the user ID when a
// joined connection goes away.
func (s *Server) SetDisconnectHook(fn func(userID string)) {
	s.onUserGone = fn
}

// Start begins accepting connections. Blocks until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	for _, route := range s.httpRoutes {
		mux.HandleFunc(route.pattern, route.handler)
	}

	var handler http.Handler = mux
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	s.httpSrv = &http.Server{Handler: handler}

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the gateway server.
func (s *Server) Stop(ctx context.Context) error {
	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.closeOnce.Do(func() { close(cc.done) })
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the actual address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

// Emit delivers an event to a single connection. Returns false when the
// connection is gone or its send queue is full.
func (s *Server) Emit(connID uint64, event domain.Event) bool {
	value, ok := s.clients.Load(connID)
	if !ok {
		return false
	}
	cc := value.(*clientConn)

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("gateway: event marshal failed", "event", string(event.Type), "error", err)
		return false
	}
	frame := Frame{
		Type:    FrameTypeEvent,
		Event:   string(event.Type),
		Payload: payload,
	}
	select {
	case cc.sendCh <- frame:
		return true
	default:
		s.logger.Warn("gateway: dropped event for slow client", "conn_id", connID, "event", string(event.Type))
		return false
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	clientInfo, err := s.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	connID := s.nextID.Add(1)
	cc := &clientConn{
		connID: connID,
		info:   clientInfo,
		ws:     ws,
		sendCh: make(chan Frame, s.queueSize),
		reqCh:  make(chan Frame, s.queueSize),
		done:   make(chan struct{}),
	}
	s.clients.Store(connID, cc)

	s.logger.Info("gateway client connected", "conn_id", connID, "client", clientInfo.Name)

	go s.writeLoop(cc)
	go s.rpcLoop(r.Context(), cc)

	// Read loop (blocking).
	s.readLoop(r.Context(), cc)

	// Cleanup.
	cc.closeOnce.Do(func() { close(cc.done) })
	s.clients.Delete(connID)
	ws.Close(websocket.StatusNormalClosure, "")
	s.handleDisconnect(connID)
	s.logger.Info("gateway client disconnected", "conn_id", connID)
}

// handleDisconnect releases presence state for the connection. The
// registry ignores stale connIDs, so a user who rejoined on a newer
// connection is unaffected when the old one finally drops.
func (s *Server) handleDisconnect(connID uint64) {
	userID, ok := s.presence.DisconnectConn(connID)
	if !ok {
		return
	}
	if s.onUserGone != nil {
		s.onUserGone(userID)
	}
	s.bus.PublishType(context.Background(), domain.EventPresenceLeft, userID, map[string]any{
		"conn_id": connID,
	})
	s.logger.Info("user left", "user", userID, "conn_id", connID)
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		err := wsjson.Read(ctx, cc.ws, &frame)
		if err != nil {
			return // connection closed or error
		}

		if frame.Type != FrameTypeRequest {
			continue
		}

		// Hand off to the per-connection dispatch goroutine; queueing here
		// keeps pipelined requests in arrival order (a chat.send written
		// right after chat.join must see the joined session).
		select {
		case cc.reqCh <- frame:
		case <-cc.done:
			return
		}
	}
}

// rpcLoop runs one connection's requests serially, in the order the
// client sent them.
func (s *Server) rpcLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case req := <-cc.reqCh:
			s.dispatchRPC(ctx, cc, req)
		}
	}
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatchRPC(ctx context.Context, cc *clientConn, req Frame) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[req.Method]
	s.handlersMu.RUnlock()
	if !ok {
		s.sendResponse(cc, req.ID, nil, domain.ErrRPCMethodNotFound)
		return
	}

	sess := &Session{
		ConnID: cc.connID,
		Client: cc.info,
		UserID: cc.user(),
	}
	result, err := handler(ctx, sess, req.Payload)
	s.sendResponse(cc, req.ID, result, err)
}

func (s *Server) sendResponse(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		Payload: result,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	select {
	case cc.sendCh <- resp:
	default:
		s.logger.Warn("gateway: dropped RPC response for slow client", "frame_id", id)
	}
}

// setConnUser records the joined user on the live connection so later
// RPCs see it in their Session.
func (s *Server) setConnUser(connID uint64, userID string) {
	if value, ok := s.clients.Load(connID); ok {
		value.(*clientConn).setUser(userID)
	}
}

var _ domain.Emitter = (*Server)(nil)
