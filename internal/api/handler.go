// Package api serves the deletion workflow over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"xpurge/internal/billing"
	"xpurge/internal/identity"
	"xpurge/internal/logging"
	"xpurge/internal/model"
	"xpurge/internal/purge"
	"xpurge/internal/quota"
	"xpurge/internal/session"
	"xpurge/internal/xclient"
)

// ProfileStore is what the handlers need from the profile store.
type ProfileStore interface {
	identity.ProfileEnsurer
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
}

// Handler holds the dependencies shared by all routes.
type Handler struct {
	ctl           *session.Controller
	profiles      ProfileStore
	billing       *billing.Processor
	webhookSecret string
	dailyLimit    int
	now           func() time.Time
}

// NewHandler builds the HTTP handlers. An empty webhookSecret disables the webhook.
func NewHandler(ctl *session.Controller, profiles ProfileStore, bp *billing.Processor, webhookSecret string, dailyLimit int) *Handler {
	return &Handler{
		ctl:           ctl,
		profiles:      profiles,
		billing:       bp,
		webhookSecret: webhookSecret,
		dailyLimit:    dailyLimit,
		now:           time.Now,
	}
}

// Router wires every route. The webhook sits outside the identity check.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLog)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Post("/api/webhook/{secret}", h.Webhook)
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(h.profiles))
		r.Post("/api/tweets", h.Tweets)
		r.Post("/api/delete", h.Delete)
		r.Get("/api/quota", h.Quota)
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeErr maps workflow errors onto status codes.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var ae *xclient.AuthError
	var fe *xclient.FetchError
	switch {
	case errors.Is(err, purge.ErrMissingCredentials):
		Error(w, http.StatusBadRequest, "Missing credentials")
	case errors.Is(err, purge.ErrNoItems):
		Error(w, http.StatusBadRequest, "No tweet IDs provided")
	case errors.Is(err, quota.ErrQuotaExceeded):
		Error(w, http.StatusForbidden, "Daily limit reached")
	case errors.As(err, &ae):
		Error(w, http.StatusUnauthorized, ae.Error())
	case errors.As(err, &fe):
		Error(w, http.StatusBadGateway, fe.Error())
	default:
		logging.Error("request_failed", map[string]any{
			"path":       r.URL.Path,
			"request_id": chiMiddleware.GetReqID(r.Context()),
			"error":      err.Error(),
		})
		Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Info("http_request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  chiMiddleware.GetReqID(r.Context()),
		})
	})
}

type credentialsRequest struct {
	AuthToken string `json:"authToken"`
	CSRFToken string `json:"csrfToken"`
}

func (c credentialsRequest) credentials() model.Credentials {
	return model.Credentials{AuthToken: c.AuthToken, CSRFToken: c.CSRFToken}
}

type tweetsRequest struct {
	credentialsRequest
	Cursor string `json:"cursor"`
}

type tweetsResponse struct {
	Tweets     []model.Item `json:"tweets"`
	Total      int          `json:"total"`
	NextCursor *string      `json:"nextCursor"`
	ScreenName string       `json:"screenName"`
}

// Tweets lists one page of the caller's posts.
func (h *Handler) Tweets(w http.ResponseWriter, r *http.Request) {
	var req tweetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	acct, page, err := h.ctl.FetchPage(r.Context(), req.credentials(), req.Cursor)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	resp := tweetsResponse{
		Tweets:     page.Items,
		Total:      page.TotalCount,
		ScreenName: acct.ScreenName,
	}
	if resp.Tweets == nil {
		resp.Tweets = []model.Item{}
	}
	if page.NextCursor != "" {
		resp.NextCursor = &page.NextCursor
	}
	JSON(w, http.StatusOK, resp)
}

type deleteRequest struct {
	credentialsRequest
	TweetIDs []string `json:"tweetIds"`
}

type deleteResponse struct {
	Deleted int           `json:"deleted"`
	Errors  []string      `json:"errors,omitempty"`
	Notice  *quota.Notice `json:"notice,omitempty"`
	BatchID string        `json:"batchId"`
}

// Delete runs one clamped batch for the caller.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID := identity.UserIDFromContext(r.Context())
	out, err := h.ctl.DeleteSelection(r.Context(), userID, req.credentials(), req.TweetIDs)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	resp := deleteResponse{
		Deleted: out.Result.Deleted,
		Errors:  out.Result.Failed,
		BatchID: out.BatchID,
	}
	if !out.Notice.Empty() {
		resp.Notice = &out.Notice
	}
	JSON(w, http.StatusOK, resp)
}

type quotaResponse struct {
	Tier         model.Tier `json:"tier"`
	Unlimited    bool       `json:"unlimited"`
	Remaining    *int       `json:"remaining"`
	DeletedToday int        `json:"deletedToday"`
	ResetsAt     time.Time  `json:"resetsAt"`
}

// Quota reports what the caller may still delete today.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfile(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	today := quota.Today(h.now())
	a := quota.Check(p, today, h.dailyLimit)
	resp := quotaResponse{
		Tier:         p.Tier,
		Unlimited:    a.Unlimited,
		DeletedToday: quota.EffectiveUsed(p.LastDeletionDate, p.DeletedToday, today),
		ResetsAt:     quota.NextReset(h.now()),
	}
	if !a.Unlimited {
		resp.Remaining = &a.Remaining
	}
	JSON(w, http.StatusOK, resp)
}

// Webhook applies a Gumroad ping. The secret travels in the path.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		logging.Warn("webhook_invalid_secret", nil)
		Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := r.ParseForm(); err != nil {
		Error(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	res, err := h.billing.Handle(r.Context(), billing.ParseSale(r.PostForm))
	switch {
	case errors.Is(err, billing.ErrInvalidSeller):
		Error(w, http.StatusForbidden, "Invalid seller")
	case errors.Is(err, billing.ErrNoEmail):
		Error(w, http.StatusBadRequest, "No email provided")
	case err != nil:
		logging.Error("webhook_failed", map[string]any{"error": err.Error()})
		Error(w, http.StatusInternalServerError, "Webhook handler failed")
	default:
		JSON(w, http.StatusOK, webhookResponse{Received: true, Result: res})
	}
}

type webhookResponse struct {
	Received bool `json:"received"`
	billing.Result
}
