package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gigescrow/core"
	"gigescrow/core/events"
	"gigescrow/observability"
	"gigescrow/storage/eventlog"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	shutdownTimeout = 5 * time.Second
	requestIDHeader = "X-Request-ID"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// EventLister pages through persisted events.
type EventLister interface {
	List(ctx context.Context, q eventlog.Query) ([]eventlog.Record, error)
}

// ServerConfig tunes the JSON-RPC server.
type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimitConfig
	// TrustProxyHeaders makes X-Forwarded-For the rate-limit identity.
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// Server exposes the escrow host over JSON-RPC 2.0.
type Server struct {
	host       *core.Host
	hub        *events.Hub
	journal    EventLister
	auth       *authenticator
	limiter    *rateLimiter
	logger     *slog.Logger
	trustProxy bool
}

// NewServer builds a server over host. hub and journal may be nil, which
// disables the websocket stream and gig_listEvents respectively.
func NewServer(host *core.Host, hub *events.Hub, journal EventLister, cfg ServerConfig) (*Server, error) {
	if host == nil {
		return nil, errors.New("rpc: host required")
	}
	auth, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		host:       host,
		hub:        hub,
		journal:    journal,
		auth:       auth,
		limiter:    newRateLimiter(cfg.RateLimit),
		logger:     logger,
		trustProxy: cfg.TrustProxyHeaders,
	}, nil
}

// Handler returns the HTTP routes of the server wrapped in tracing.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Post("/", s.handle)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	return otelhttp.NewHandler(r, "gigd.rpc")
}

// Serve accepts connections on listener until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	s.logger.Info("json-rpc server listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// mutatingMethods require a bearer token.
var mutatingMethods = map[string]struct{}{
	"gig_initialize": {},
	"gig_deposit":    {},
	"gig_withdraw":   {},
	"gig_setRating":  {},
	"gig_setSkills":  {},
	"bank_mint":      {},
	"bank_transfer":  {},
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		observability.RPC().Observe(req.Method, rec.status, time.Since(start))
	}()

	if !s.limiter.allow(s.clientSource(r), start) {
		observability.RPC().RecordThrottle("rate_limit")
		writeError(rec, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}
	if _, mutating := mutatingMethods[req.Method]; mutating {
		if authErr := s.auth.verify(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	switch req.Method {
	case "gig_initialize":
		s.handleGigInitialize(rec, r, req)
	case "gig_provider":
		s.handleGigProvider(rec, r, req)
	case "gig_deadline":
		s.handleGigDeadline(rec, r, req)
	case "gig_state":
		s.handleGigState(rec, r, req)
	case "gig_token":
		s.handleGigToken(rec, r, req)
	case "gig_balance":
		s.handleGigBalance(rec, r, req)
	case "gig_deposit":
		s.handleGigDeposit(rec, r, req)
	case "gig_withdraw":
		s.handleGigWithdraw(rec, r, req)
	case "gig_startedAt":
		s.handleGigStartedAt(rec, r, req)
	case "gig_rating":
		s.handleGigRating(rec, r, req)
	case "gig_setRating":
		s.handleGigSetRating(rec, r, req)
	case "gig_skills":
		s.handleGigSkills(rec, r, req)
	case "gig_setSkills":
		s.handleGigSetSkills(rec, r, req)
	case "gig_snapshot":
		s.handleGigSnapshot(rec, r, req)
	case "gig_address":
		s.handleGigAddress(rec, r, req)
	case "gig_listEvents":
		s.handleGigListEvents(rec, r, req)
	case "bank_balance":
		s.handleBankBalance(rec, r, req)
	case "bank_mint":
		s.handleBankMint(rec, r, req)
	case "bank_transfer":
		s.handleBankTransfer(rec, r, req)
	default:
		writeError(rec, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"tokens": s.host.Tokens(),
	})
}

func (s *Server) clientSource(r *http.Request) string {
	if s.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			candidate, _, _ := strings.Cut(forwarded, ",")
			if candidate = strings.TrimSpace(candidate); candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
