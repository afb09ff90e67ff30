package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"xpurge/internal/model"
)

type ensurer struct {
	calls []string
	err   error
}

func (e *ensurer) EnsureProfile(_ context.Context, userID, email string) (model.Profile, error) {
	e.calls = append(e.calls, userID+"|"+email)
	return model.Profile{UserID: userID}, e.err
}

func TestMiddleware(t *testing.T) {
	store := &ensurer{}
	var seen string
	h := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context()) + "|" + EmailFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserHeader, "bad id with spaces")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid header: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserHeader, "user-1")
	req.Header.Set(EmailHeader, "a@b.c")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != "user-1|a@b.c" {
		t.Fatalf("got %d, seen %q", rec.Code, seen)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected one ensure call, got %v", store.calls)
	}

	store.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store failure: got %d", rec.Code)
	}
}
