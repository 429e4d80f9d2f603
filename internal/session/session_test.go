package session

import (
	"context"
	"errors"
	"testing"

	"protein-analysis-ui/internal/logging"
)

type stubValidator struct {
	err    error
	calls  int
	tokens []string
}

func (v *stubValidator) ValidateSession(_ context.Context, token string) error {
	v.calls++
	v.tokens = append(v.tokens, token)
	return v.err
}

type failingStore struct{ MemoryStore }

func (s *failingStore) Clear(context.Context) error { return errors.New("disk full") }

func TestNewController_StartsChecking(t *testing.T) {
	c := NewController(NewMemoryStore(nil), &stubValidator{}, logging.Discard())
	if st := c.State(); !st.Checking || st.Authenticated {
		t.Fatalf("expected checking unauthenticated state, got %+v", st)
	}
}

func TestStart_NoPersistedToken(t *testing.T) {
	v := &stubValidator{}
	c := NewController(NewMemoryStore(nil), v, logging.Discard())

	st := c.Start(context.Background())
	if st.Checking || st.Authenticated || st.Token != "" || st.User != nil {
		t.Fatalf("expected unauthenticated settled state, got %+v", st)
	}
	if v.calls != 0 {
		t.Fatalf("expected no validation call, got %d", v.calls)
	}
}

func TestStart_ValidPersistedSession(t *testing.T) {
	store := NewMemoryStore(&Persisted{Token: "tok-1", User: UserProfile{Email: "ana@lab.org", Name: "Ana"}})
	v := &stubValidator{}
	c := NewController(store, v, logging.Discard())

	st := c.Start(context.Background())
	if !st.Authenticated || st.Checking || st.Token != "tok-1" || st.User == nil || st.User.Name != "Ana" {
		t.Fatalf("expected restored session, got %+v", st)
	}
	if v.calls != 1 || v.tokens[0] != "tok-1" {
		t.Fatalf("expected one validation with persisted token, got %v", v.tokens)
	}
}

func TestStart_RejectedTokenClearsStore(t *testing.T) {
	store := NewMemoryStore(&Persisted{Token: "stale", User: UserProfile{Email: "ana@lab.org"}})
	c := NewController(store, &stubValidator{err: errors.New("status=401")}, logging.Discard())

	st := c.Start(context.Background())
	if st.Authenticated || st.Checking || st.Token != "" {
		t.Fatalf("expected unauthenticated state, got %+v", st)
	}
	p, _ := store.Load(context.Background())
	if p != nil {
		t.Fatalf("expected persisted pair cleared, got %+v", p)
	}
}

func TestLoginThenState(t *testing.T) {
	store := NewMemoryStore(nil)
	c := NewController(store, &stubValidator{}, logging.Discard())
	c.Start(context.Background())

	user := UserProfile{ID: "7", Email: "ana@lab.org", Name: "Ana", Role: "investigador"}
	if err := c.Login(context.Background(), "tok-2", user); err != nil {
		t.Fatalf("login: %v", err)
	}
	st := c.State()
	if st.Token != "tok-2" || !st.Authenticated || st.User == nil || st.User.ID != "7" || st.User.Role != "investigador" {
		t.Fatalf("unexpected state after login %+v", st)
	}
	p, _ := store.Load(context.Background())
	if p == nil || p.Token != "tok-2" || p.User.Email != "ana@lab.org" {
		t.Fatalf("expected pair persisted, got %+v", p)
	}

	st.User.Name = "mutated"
	if c.State().User.Name != "Ana" {
		t.Fatalf("state copy leaked internal user")
	}
}

func TestLogin_EmptyToken(t *testing.T) {
	c := NewController(NewMemoryStore(nil), &stubValidator{}, logging.Discard())
	if err := c.Login(context.Background(), "", UserProfile{}); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	if c.State().Authenticated {
		t.Fatalf("expected unauthenticated state")
	}
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name  string
		login bool
	}{
		{name: "after login", login: true},
		{name: "without session", login: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(nil)
			c := NewController(store, &stubValidator{}, logging.Discard())
			if tt.login {
				_ = c.Login(context.Background(), "tok", UserProfile{Email: "a@b.c"})
			}
			if err := c.Logout(context.Background()); err != nil {
				t.Fatalf("logout: %v", err)
			}
			st := c.State()
			if st.Authenticated || st.Token != "" || st.User != nil {
				t.Fatalf("expected cleared state, got %+v", st)
			}
			if p, _ := store.Load(context.Background()); p != nil {
				t.Fatalf("expected persisted pair cleared, got %+v", p)
			}
		})
	}
}

func TestLogout_StoreErrorStillClearsMemory(t *testing.T) {
	c := NewController(&failingStore{}, &stubValidator{}, logging.Discard())
	_ = c.Login(context.Background(), "tok", UserProfile{Email: "a@b.c"})
	if err := c.Logout(context.Background()); err == nil {
		t.Fatalf("expected store error to be reported")
	}
	if c.State().Authenticated {
		t.Fatalf("expected memory cleared despite store error")
	}
}
