package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"protein-analysis-ui/internal/config"
	"protein-analysis-ui/internal/logging"
	"protein-analysis-ui/internal/session"
)

func TestSessionKeys_DerivedFromSecret(t *testing.T) {
	h1, b1, err := sessionKeys("s3cret")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	h2, b2, _ := sessionKeys("s3cret")
	if !bytes.Equal(h1, h2) || !bytes.Equal(b1, b2) {
		t.Fatalf("same secret must derive the same keys")
	}
	if len(h1) != 64 || len(b1) != 32 || bytes.Equal(h1[:32], b1) {
		t.Fatalf("unexpected key shapes")
	}
	h3, _, _ := sessionKeys("other")
	if bytes.Equal(h1, h3) {
		t.Fatalf("different secrets must derive different keys")
	}
	r1, _, _ := sessionKeys("")
	r2, _, _ := sessionKeys("")
	if len(r1) != 64 || bytes.Equal(r1, r2) {
		t.Fatalf("empty secret must yield random keys")
	}
}

func saveCookie(t *testing.T, scope string) string {
	t.Helper()
	cfg := config.Config{SessionSecret: "k", SessionScope: scope, SessionMaxAge: 2 * time.Hour}
	cs, err := newCookieSessions(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("cookie sessions: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := cs.For(rec, req).Save(context.Background(), session.Persisted{Token: "t", User: session.UserProfile{Email: "a@b.c"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	return rec.Header().Get("Set-Cookie")
}

func TestCookieScope(t *testing.T) {
	if c := saveCookie(t, config.SessionScopeBrowser); strings.Contains(c, "Max-Age") || strings.Contains(c, "Expires") {
		t.Fatalf("browser scope must set a session cookie, got %q", c)
	}
	if c := saveCookie(t, config.SessionScopePersistent); !strings.Contains(c, "Max-Age=7200") {
		t.Fatalf("persistent scope must set Max-Age, got %q", c)
	}
}

func TestRequestStore_RoundTrip(t *testing.T) {
	cs, err := newCookieSessions(config.Config{SessionSecret: "k", SessionMaxAge: time.Hour}, logging.Discard())
	if err != nil {
		t.Fatalf("cookie sessions: %v", err)
	}
	ctx := context.Background()
	want := session.Persisted{Token: "tok-9", User: session.UserProfile{ID: "9", Email: "luis@lab.org", Name: "Luis", Role: "admin"}}

	rec := httptest.NewRecorder()
	if err := cs.For(rec, httptest.NewRequest(http.MethodGet, "/", nil)).Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	got, err := cs.For(httptest.NewRecorder(), req).Load(ctx)
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if got.Token != want.Token || got.User.Email != want.User.Email || got.User.Name != want.User.Name || got.User.Role != want.User.Role {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	empty, err := cs.For(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)).Load(ctx)
	if err != nil || empty != nil {
		t.Fatalf("no cookie must load nothing, got %+v %v", empty, err)
	}
}
