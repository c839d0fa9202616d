package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"gigescrow/core"
	"gigescrow/core/clock"
	"gigescrow/core/events"
	"gigescrow/crypto"
	"gigescrow/native/gig"
	"gigescrow/storage"
	"gigescrow/storage/eventlog"
)

const (
	testSecret   = "test-secret"
	testDeadline = uint64(1_800_000_000)
)

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

type testServer struct {
	server  *Server
	handler http.Handler
	clock   *clock.Manual
	hub     *events.Hub
	token   string
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) *testServer {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	journal, err := eventlog.Open(filepath.Join(t.TempDir(), "events.db"), nil)
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	hub := events.NewHub()
	manual := clock.NewManual(testDeadline - 100)
	host, err := core.NewHost(core.HostConfig{
		DB:      db,
		Clock:   manual,
		Tokens:  []string{"GIG"},
		Emitter: events.Multi(hub, journal),
	})
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	cfg := ServerConfig{Auth: AuthConfig{Secret: testSecret, Issuer: "gig-operator", Audience: "gigd"}}
	if mutate != nil {
		mutate(&cfg)
	}
	server, err := NewServer(host, hub, journal, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	token, err := SignToken(testSecret, "gig-operator", "gigd", "tests", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return &testServer{server: server, handler: server.Handler(), clock: manual, hub: hub, token: token}
}

func (ts *testServer) call(t *testing.T, method string, params interface{}, authed bool) (int, rpcEnvelope) {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4000"
	if authed {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	var env rpcEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func (ts *testServer) mustCall(t *testing.T, method string, params interface{}, out interface{}) {
	t.Helper()
	_, mutating := mutatingMethods[method]
	status, env := ts.call(t, method, params, mutating)
	if env.Error != nil || status != http.StatusOK {
		t.Fatalf("%s: status %d error %+v", method, status, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			t.Fatalf("%s: decode result: %v", method, err)
		}
	}
}

func account(fill byte) string {
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return crypto.FromArray(raw).String()
}

func expectError(t *testing.T, status int, env rpcEnvelope, wantStatus, wantCode int) {
	t.Helper()
	if status != wantStatus || env.Error == nil || env.Error.Code != wantCode {
		t.Fatalf("expected status %d code %d, got status %d error %+v", wantStatus, wantCode, status, env.Error)
	}
}

func TestNewServerRequiresSecret(t *testing.T) {
	host, err := core.NewHost(core.HostConfig{DB: storage.NewMemDB(), Tokens: []string{"GIG"}})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if _, err := NewServer(host, nil, nil, ServerConfig{}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
	if _, err := NewServer(host, nil, nil, ServerConfig{Auth: AuthConfig{Disabled: true}}); err != nil {
		t.Fatalf("disabled auth: %v", err)
	}
	if _, err := NewServer(nil, nil, nil, ServerConfig{Auth: AuthConfig{Disabled: true}}); err == nil {
		t.Fatalf("expected missing host to fail")
	}
}

func TestMutatingMethodsRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)
	params := gigInitializeParams{Provider: account(1), Deadline: testDeadline, Token: "GIG", Rating: 2}

	status, env := ts.call(t, "gig_initialize", params, false)
	expectError(t, status, env, http.StatusUnauthorized, codeUnauthorized)

	badToken, err := SignToken("other-secret", "gig-operator", "gigd", "x", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ts.token = badToken
	status, env = ts.call(t, "gig_initialize", params, true)
	expectError(t, status, env, http.StatusUnauthorized, codeUnauthorized)

	expired, err := SignToken(testSecret, "gig-operator", "gigd", "x", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ts.token = expired
	status, env = ts.call(t, "gig_initialize", params, true)
	expectError(t, status, env, http.StatusUnauthorized, codeUnauthorized)

	// read methods stay open
	status, env = ts.call(t, "gig_address", nil, false)
	if status != http.StatusOK || env.Error != nil {
		t.Fatalf("gig_address: status %d error %+v", status, env.Error)
	}
}

func TestGigLifecycleOverRPC(t *testing.T) {
	ts := newTestServer(t, nil)
	provider, depositor, operator := account(1), account(2), account(3)

	status, env := ts.call(t, "gig_provider", nil, false)
	expectError(t, status, env, http.StatusNotFound, codeGigNotInitialized)

	ts.mustCall(t, "bank_mint", bankMintParams{Token: "gig", Account: depositor, Amount: "100"}, nil)
	ts.mustCall(t, "bank_mint", bankMintParams{Token: "GIG", Account: operator, Amount: "500"}, nil)

	var cfg gigConfigJSON
	ts.mustCall(t, "gig_initialize", gigInitializeParams{Provider: provider, Deadline: testDeadline, Token: "gig", Rating: 2}, &cfg)
	if cfg.Token != "GIG" || cfg.Provider != provider || cfg.StartedAt != testDeadline-100 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	status, env = ts.call(t, "gig_initialize", gigInitializeParams{Provider: provider, Deadline: 1, Token: "GIG"}, true)
	expectError(t, status, env, http.StatusConflict, codeGigAlreadyInitialized)

	status, env = ts.call(t, "gig_deposit", gigDepositParams{User: depositor, Amount: "0"}, true)
	expectError(t, status, env, http.StatusBadRequest, codeGigInvalidAmount)
	status, env = ts.call(t, "gig_deposit", gigDepositParams{User: depositor, Amount: "-5"}, true)
	expectError(t, status, env, http.StatusBadRequest, codeGigInvalidAmount)

	ts.clock.Set(testDeadline - 1)
	var moved gigMovementResult
	ts.mustCall(t, "gig_deposit", gigDepositParams{User: depositor, Amount: "100"}, &moved)
	if moved.Deposited != "100" || moved.ContractBalance != "100" || moved.State != 0 {
		t.Fatalf("unexpected deposit result %+v", moved)
	}

	status, env = ts.call(t, "gig_withdraw", gigWithdrawParams{To: provider}, true)
	expectError(t, status, env, http.StatusConflict, codeGigEscrowOpen)

	ts.clock.Set(testDeadline)
	var state uint32
	ts.mustCall(t, "gig_state", nil, &state)
	if state != 1 {
		t.Fatalf("state = %d, want 1", state)
	}
	var providerView string
	ts.mustCall(t, "gig_balance", gigUserParams{User: provider}, &providerView)
	if providerView != "100" {
		t.Fatalf("provider balance = %s", providerView)
	}

	status, env = ts.call(t, "gig_withdraw", gigWithdrawParams{To: depositor}, true)
	expectError(t, status, env, http.StatusForbidden, codeGigNotAuthorized)
	ts.mustCall(t, "gig_withdraw", gigWithdrawParams{To: provider}, nil)
	status, env = ts.call(t, "gig_withdraw", gigWithdrawParams{To: provider}, true)
	expectError(t, status, env, http.StatusConflict, codeGigOver)

	var vault string
	ts.mustCall(t, "gig_address", nil, &vault)
	status, env = ts.call(t, "gig_withdraw", gigWithdrawParams{To: depositor}, true)
	expectError(t, status, env, http.StatusConflict, codeBankInsufficientBalance)
	ts.mustCall(t, "bank_transfer", bankTransferParams{Token: "GIG", From: operator, To: vault, Amount: "50"}, nil)

	ts.clock.Set(testDeadline + 1)
	ts.mustCall(t, "gig_withdraw", gigWithdrawParams{To: depositor}, &moved)
	if moved.Deposited != "0" || moved.State != 2 {
		t.Fatalf("unexpected refund result %+v", moved)
	}
	var bal bankBalanceResult
	ts.mustCall(t, "bank_balance", bankBalanceParams{Token: "GIG", Account: depositor}, &bal)
	if bal.Balance != "50" {
		t.Fatalf("depositor balance = %s, want 50", bal.Balance)
	}

	var records []eventlog.Record
	ts.mustCall(t, "gig_listEvents", gigListEventsParams{Type: events.TypeAmountChanged}, &records)
	if len(records) != 2 || records[0].Attributes["amount"] != "100" || records[1].Attributes["amount"] != "0" {
		t.Fatalf("unexpected amount_changed log %+v", records)
	}
}

func TestRatingAndSkillsOverRPC(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.mustCall(t, "gig_initialize", gigInitializeParams{Provider: account(1), Deadline: testDeadline, Token: "GIG", Rating: 9}, nil)

	var rating uint64
	ts.mustCall(t, "gig_rating", nil, &rating)
	if rating != 9 {
		t.Fatalf("initialize should store rating unchecked, got %d", rating)
	}
	status, env := ts.call(t, "gig_setRating", gigRatingParams{Rating: 6}, true)
	expectError(t, status, env, http.StatusBadRequest, codeGigInvalidRating)
	ts.mustCall(t, "gig_setRating", gigRatingParams{Rating: 4}, &rating)
	if rating != 4 {
		t.Fatalf("rating = %d", rating)
	}

	var skills []string
	ts.mustCall(t, "gig_skills", nil, &skills)
	if len(skills) != 0 {
		t.Fatalf("expected no skills, got %v", skills)
	}
	ts.mustCall(t, "gig_setSkills", gigSkillsParams{Skills: []string{"go", " ", "sql"}}, &skills)
	if strings.Join(skills, ",") != "go,sql" {
		t.Fatalf("skills = %v", skills)
	}

	var snap gigSnapshotJSON
	ts.mustCall(t, "gig_snapshot", gigUserParams{User: account(2)}, &snap)
	if snap.Phase != string(gig.PhaseInProgress) || snap.Rating != 4 || len(snap.Skills) != 2 || snap.Deposited != "0" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	status, env := ts.call(t, "gig_nope", nil, false)
	expectError(t, status, env, http.StatusNotFound, codeMethodNotFound)

	status, env = ts.call(t, "gig_provider", map[string]string{"x": "y"}, false)
	expectError(t, status, env, http.StatusBadRequest, codeInvalidParams)

	status, env = ts.call(t, "gig_balance", gigUserParams{User: "nhb1qqqq"}, false)
	expectError(t, status, env, http.StatusBadRequest, codeInvalidParams)

	status, env = ts.call(t, "gig_balance", map[string]string{"user": account(1), "extra": "x"}, false)
	expectError(t, status, env, http.StatusBadRequest, codeInvalidParams)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid JSON payload") {
		t.Fatalf("unexpected parse error response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *ServerConfig) {
		cfg.RateLimit = RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})
	if status, _ := ts.call(t, "gig_address", nil, false); status != http.StatusOK {
		t.Fatalf("first request status %d", status)
	}
	status, env := ts.call(t, "gig_address", nil, false)
	expectError(t, status, env, http.StatusTooManyRequests, codeRateLimited)
}

func TestClientSourceHonoursProxySetting(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	direct := newTestServer(t, nil).server
	if source := direct.clientSource(req); source != "10.0.0.5" {
		t.Fatalf("expected remote address, got %q", source)
	}
	proxied := newTestServer(t, func(cfg *ServerConfig) { cfg.TrustProxyHeaders = true }).server
	if source := proxied.clientSource(req); source != "203.0.113.9" {
		t.Fatalf("expected forwarded address, got %q", source)
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"GIG"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "abc" {
		t.Fatalf("expected request id to be echoed")
	}
}

func TestEventsWebsocketStream(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.hub.Emit(events.AmountChanged{Token: "GIG", Balance: nil})

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/events?cursor=0", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() events.Published {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var update events.Published
		if err := json.Unmarshal(data, &update); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return update
	}

	first := read()
	if first.Sequence != 1 || first.Event.Type != events.TypeAmountChanged {
		t.Fatalf("unexpected backlog entry %+v", first)
	}

	ts.mustCall(t, "bank_mint", bankMintParams{Token: "GIG", Account: account(4), Amount: "7"}, nil)
	second := read()
	if second.Sequence != 2 || second.Event.Type != events.TypeMint || second.Event.Attributes["amount"] != "7" {
		t.Fatalf("unexpected live entry %+v", second)
	}
}

func TestEventsWebsocketRejectsBadCursor(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/ws/events?cursor=abc", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", rec.Code)
	}
}
