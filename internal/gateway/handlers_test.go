package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanclus/nexus-auth-proxy/internal/dispatch"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/metrics"
	"github.com/zanclus/nexus-auth-proxy/internal/session"
	"github.com/zanclus/nexus-auth-proxy/internal/token"
	tokenservice "github.com/zanclus/nexus-auth-proxy/internal/token/service"
	tokenstore "github.com/zanclus/nexus-auth-proxy/internal/token/store"
	"github.com/zanclus/nexus-auth-proxy/internal/upstream"
	"github.com/zanclus/nexus-auth-proxy/pkg/testutil"
)

const testCookieName = "nexus_proxy_session"

type testGateway struct {
	router       http.Handler
	tokens       *tokenservice.Service
	tokenStore   *tokenstore.Memory
	sessionStore *session.MemoryStore
	upstreamURL  string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway stands up the full router against a fake upstream.
func newTestGateway(t *testing.T, upstreamHandler http.Handler) *testGateway {
	t.Helper()

	if upstreamHandler == nil {
		upstreamHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	srv := httptest.NewServer(upstreamHandler)
	t.Cleanup(srv.Close)

	return newTestGatewayForTarget(t, srv.URL)
}

// newTestGatewayForTarget wires the full gateway against an upstream base
// URL, live or dead.
func newTestGatewayForTarget(t *testing.T, targetURL string) *testGateway {
	t.Helper()

	log := discardLogger()
	store := tokenstore.NewMemory()
	tokens := tokenservice.New(store, log)
	bridge := upstream.NewBridge(http.DefaultClient, targetURL, log)
	pool := dispatch.NewPool(4, log)
	backend := NewBackend(pool, tokens, bridge)
	sessionStore := session.NewMemoryStore()
	sessions := NewSessionManager(sessionStore, testCookieName, time.Hour, log)
	m := metrics.New()
	handler := NewHandler(backend, sessions, m, log, map[string]func(context.Context) error{})

	target, err := url.Parse(targetURL)
	require.NoError(t, err)
	proxy := NewProxy(target, http.DefaultTransport, backend, "REMOTE_USER", m, log)

	return &testGateway{
		router:       NewRouter(handler, proxy, "/nexus", m, log),
		tokens:       tokens,
		tokenStore:   store,
		sessionStore: sessionStore,
		upstreamURL:  targetURL,
	}
}

// sessionFor seeds a logged-in session and returns its cookie.
func (g *testGateway) sessionFor(t *testing.T, username string, roles ...string) *http.Cookie {
	t.Helper()
	sess := session.New(time.Hour)
	sess.Profile = &upstream.Profile{
		Data: upstream.ProfileData{UserID: username, Roles: roles},
	}
	require.NoError(t, g.sessionStore.Save(context.Background(), sess))
	return &http.Cookie{Name: testCookieName, Value: sess.ID}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	g := newTestGateway(t, nil)

	req := testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user")
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.AssertErrorMessage(t, rr, "Must be admin to list users.")

	req = testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user")
	req.AddCookie(g.sessionFor(t, "carol", "nx-deployment"))
	rr = testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestListUsersAsAdmin(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()
	_, err := g.tokens.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = g.tokens.Create(ctx, "bob")
	require.NoError(t, err)

	req := testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user")
	req.AddCookie(g.sessionFor(t, "admin", "nx-admin"))
	rr := testutil.DoRequest(g.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	users := testutil.UnmarshalResponse[token.Users](t, rr)
	assert.Equal(t, []string{"alice", "bob"}, users.Users)
}

func TestCreateTokenAsAdmin(t *testing.T) {
	g := newTestGateway(t, nil)

	req := testutil.NewRequest(t, http.MethodPost, "/nexus-proxy/api/user/alice")
	req.AddCookie(g.sessionFor(t, "admin", "nx-admin"))
	rr := testutil.DoRequest(g.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	created := testutil.UnmarshalResponse[token.Created](t, rr)
	assert.Equal(t, "alice", created.Username)
	_, err := uuid.Parse(created.Token)
	require.NoError(t, err)

	// The token is live immediately.
	username, err := g.tokens.Validate(context.Background(), created.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestCreateTokenSelfService(t *testing.T) {
	g := newTestGateway(t, nil)

	req := testutil.NewRequest(t, http.MethodPost, "/nexus-proxy/api/user/carol")
	req.AddCookie(g.sessionFor(t, "carol"))
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	// Same session cannot mint for someone else.
	req = testutil.NewRequest(t, http.MethodPost, "/nexus-proxy/api/user/bob")
	req.AddCookie(g.sessionFor(t, "carol"))
	rr = testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	// The rejected call never reached the store.
	list, err := g.tokens.List(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, list.Tokens)
}

func TestListTokensAdminOrSelf(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()
	created, err := g.tokens.Create(ctx, "alice")
	require.NoError(t, err)

	// Self.
	req := testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user/alice")
	req.AddCookie(g.sessionFor(t, "alice"))
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	list := testutil.UnmarshalResponse[token.List](t, rr)
	assert.Equal(t, "alice", list.Username)
	assert.Equal(t, []string{created.Token}, list.Tokens)

	// Other non-admin.
	req = testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user/alice")
	req.AddCookie(g.sessionFor(t, "carol"))
	rr = testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.AssertErrorMessage(t, rr, "Must be admin to view other users.")
}

func TestDeleteUserTokensRejectedForOtherUser(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()
	_, err := g.tokens.Create(ctx, "bob")
	require.NoError(t, err)

	req := testutil.NewRequest(t, http.MethodDelete, "/nexus-proxy/api/user/bob")
	req.AddCookie(g.sessionFor(t, "carol"))
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	// Bob's tokens survive; the store was never invoked.
	list, err := g.tokens.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, list.Tokens, 1)
}

func TestDeleteUserTokensAsAdmin(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()
	_, err := g.tokens.Create(ctx, "bob")
	require.NoError(t, err)

	req := testutil.NewRequest(t, http.MethodDelete, "/nexus-proxy/api/user/bob")
	req.AddCookie(g.sessionFor(t, "admin", "nx-admin"))
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	deleted := testutil.UnmarshalResponse[token.Deleted](t, rr)
	assert.Equal(t, "true", deleted.Success)

	list, err := g.tokens.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list.Tokens)
}

func TestDeleteSingleToken(t *testing.T) {
	g := newTestGateway(t, nil)
	ctx := context.Background()
	created, err := g.tokens.Create(ctx, "alice")
	require.NoError(t, err)

	req := testutil.NewRequest(t, http.MethodDelete, "/nexus-proxy/api/user/alice/"+created.Token)
	req.AddCookie(g.sessionFor(t, "alice"))
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	_, err = g.tokens.Validate(ctx, created.Token)
	assert.Error(t, err)
}

func TestDeleteAbsentTokenReturnsNotFound(t *testing.T) {
	g := newTestGateway(t, nil)

	req := testutil.NewRequest(t, http.MethodDelete, "/nexus-proxy/api/user/alice/"+uuid.NewString())
	req.AddCookie(g.sessionFor(t, "alice"))
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func upstreamWithUserEndpoint(profile string, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(profile))
		}
	})
}

func TestLoginStoresProfileInSession(t *testing.T) {
	profile := `{"data":{"userId":"alice","roles":["nx-admin"]}}`
	g := newTestGateway(t, upstreamWithUserEndpoint(profile, http.StatusOK))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/nexus-proxy/api/login",
		map[string]string{"username": "alice", "password": "s3cret"})
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var result upstream.VerifyResult
	require.NoError(t, json.Unmarshal(testutil.ReadBody(t, rr), &result))
	assert.Equal(t, http.StatusOK, result.Status)
	require.NotNil(t, result.UserInfo)
	assert.Equal(t, "alice", result.UserInfo.Data.UserID)

	// The cookie from login unlocks admin routes.
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	listReq := testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user")
	listReq.AddCookie(cookies[0])
	listRR := testutil.DoRequest(g.router, listReq)
	testutil.AssertStatus(t, listRR, http.StatusOK)
}

func TestLoginMissingFields(t *testing.T) {
	g := newTestGateway(t, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/nexus-proxy/api/login",
		map[string]string{"username": "alice"})
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestLoginRejectedCredentials(t *testing.T) {
	g := newTestGateway(t, upstreamWithUserEndpoint("", http.StatusUnauthorized))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/nexus-proxy/api/login",
		map[string]string{"username": "alice", "password": "wrong"})
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	assert.Empty(t, rr.Result().Cookies(), "no session on failed login")
}

func TestLogoutClearsSession(t *testing.T) {
	g := newTestGateway(t, nil)
	cookie := g.sessionFor(t, "admin", "nx-admin")

	req := testutil.NewRequest(t, http.MethodPost, "/nexus-proxy/api/logout")
	req.AddCookie(cookie)
	rr := testutil.DoRequest(g.router, req)
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	// The session no longer grants anything.
	listReq := testutil.NewRequest(t, http.MethodGet, "/nexus-proxy/api/user")
	listReq.AddCookie(cookie)
	listRR := testutil.DoRequest(g.router, listReq)
	testutil.AssertStatus(t, listRR, http.StatusUnauthorized)
}

func TestHealthReportsFailingBackend(t *testing.T) {
	log := discardLogger()
	store := tokenstore.NewMemory()
	tokens := tokenservice.New(store, log)
	pool := dispatch.NewPool(2, log)
	backend := NewBackend(pool, tokens, upstream.NewBridge(nil, "http://127.0.0.1:0", log))
	sessions := NewSessionManager(session.NewMemoryStore(), testCookieName, time.Hour, log)
	m := metrics.New()

	handler := NewHandler(backend, sessions, m, log, map[string]func(context.Context) error{
		"token_store": func(context.Context) error { return nil },
		"sessions":    func(context.Context) error { return assert.AnError },
	})

	target, _ := url.Parse("http://127.0.0.1:0")
	proxy := NewProxy(target, http.DefaultTransport, backend, "REMOTE_USER", m, log)
	router := NewRouter(handler, proxy, "/nexus", m, log)

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

	checks := testutil.UnmarshalResponse[map[string]string](t, rr)
	assert.Equal(t, "ok", (*checks)["token_store"])
	assert.NotEqual(t, "ok", (*checks)["sessions"])
}
