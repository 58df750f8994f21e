package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zanclus/nexus-auth-proxy/internal/dispatch"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/metrics"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/middleware"
	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// Handler serves the token-management API and the login exchange. Every
// handler derives the caller's capabilities from the session before touching
// the backend; rejected requests never reach the token store.
type Handler struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	backend  *Backend
	sessions *SessionManager
	health   map[string]func(context.Context) error
}

// NewHandler creates the API handler.
func NewHandler(
	backend *Backend,
	sessions *SessionManager,
	m *metrics.Metrics,
	logger *slog.Logger,
	health map[string]func(context.Context) error,
) *Handler {
	return &Handler{
		logger:   logger,
		metrics:  m,
		backend:  backend,
		sessions: sessions,
		health:   health,
	}
}

// Register mounts the API routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/user", h.handleListUsers)
	r.Get("/user/{username}", h.handleListTokens)
	r.Post("/user/{username}", h.handleCreateToken)
	r.Delete("/user/{username}", h.handleDeleteUserTokens)
	r.Delete("/user/{username}/{token}", h.handleDeleteToken)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	access := h.sessions.Access(r)
	if !access.Admin {
		writeUnauthorized(w, "Must be admin to list users.")
		return
	}
	users, err := dispatch.Await(r.Context(), h.backend.ListUsers(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	access := h.sessions.Access(r)
	username := chi.URLParam(r, "username")
	if !access.CanActFor(username) {
		writeUnauthorized(w, "Must be admin to view other users.")
		return
	}
	list, err := dispatch.Await(r.Context(), h.backend.ListTokens(r.Context(), username))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	access := h.sessions.Access(r)
	username := chi.URLParam(r, "username")
	if !access.CanActFor(username) {
		writeUnauthorized(w, "Must be admin to create tokens for other users.")
		return
	}
	created, err := dispatch.Await(r.Context(), h.backend.CreateToken(r.Context(), username))
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.TokensIssued.Inc()
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleDeleteUserTokens(w http.ResponseWriter, r *http.Request) {
	access := h.sessions.Access(r)
	username := chi.URLParam(r, "username")
	if !access.CanActFor(username) {
		writeUnauthorized(w, "Must be admin to delete users.")
		return
	}
	deleted, err := dispatch.Await(r.Context(), h.backend.DeleteUserTokens(r.Context(), username))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (h *Handler) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	access := h.sessions.Access(r)
	username := chi.URLParam(r, "username")
	tok := chi.URLParam(r, "token")
	if !access.CanActFor(username) {
		writeUnauthorized(w, "Must be admin to delete tokens from other users.")
		return
	}
	deleted, err := dispatch.Await(r.Context(), h.backend.DeleteToken(r.Context(), username, tok))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}

	start := time.Now()
	result, err := dispatch.Await(ctx, h.backend.VerifyCredentials(ctx, req.Username, req.Password))
	h.metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeUpstream) {
			// The upstream's verdict on the credentials is final; report
			// it as an authentication failure rather than a gateway fault.
			h.logger.WarnContext(ctx, "login rejected",
				"request_id", middleware.GetRequestID(ctx),
				"username", req.Username,
				"error", err.Error(),
			)
			writeUnauthorized(w, pkgerrors.MessageOf(err))
			return
		}
		writeError(w, err)
		return
	}

	sess, err := h.sessions.Issue(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.Profile = result.UserInfo
	if err := h.sessions.Save(r, sess); err != nil {
		writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login succeeded",
		"request_id", middleware.GetRequestID(ctx),
		"username", req.Username,
	)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := http.StatusOK
	checks := map[string]string{}
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, checks)
}
