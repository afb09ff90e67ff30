// Package identity resolves the application user behind an API request.
package identity

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"xpurge/internal/logging"
	"xpurge/internal/model"
)

const (
	UserHeader  = "X-User-ID"
	EmailHeader = "X-User-Email"
)

type contextKey int

const (
	userIDKey contextKey = iota
	emailKey
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,128}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// EmailFromContext extracts the email the request was made with, if any.
func EmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(emailKey).(string); ok {
		return v
	}
	return ""
}

// WithUser returns ctx carrying userID and email.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}

// ProfileEnsurer creates a profile on first sight.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, userID, email string) (model.Profile, error)
}

// Middleware requires a user id header and makes sure the user has a profile.
func Middleware(profiles ProfileEnsurer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserHeader))
			if !userIDPattern.MatchString(userID) {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			email := strings.TrimSpace(r.Header.Get(EmailHeader))
			if _, err := profiles.EnsureProfile(r.Context(), userID, email); err != nil {
				logging.Error("ensure_profile_failed", map[string]any{"user_id": userID, "error": err.Error()})
				http.Error(w, `{"error":"failed to initialize user"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, email)))
		})
	}
}
