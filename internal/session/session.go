package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrEmptyToken is returned by Login when no token is supplied.
var ErrEmptyToken = errors.New("session: empty token")

// UserProfile is the user record returned by the login endpoint.
type UserProfile struct {
	ID    string         `json:"id,omitempty"`
	Email string         `json:"email,omitempty"`
	Name  string         `json:"nombre,omitempty"`
	Role  string         `json:"rol,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// DisplayName prefers the user's name and falls back to the email.
func (u UserProfile) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// State is a snapshot of the session. Panels only ever see copies.
type State struct {
	Token         string
	User          *UserProfile
	Authenticated bool
	Checking      bool
}

// Persisted is the token/user pair kept by a Store between starts.
type Persisted struct {
	Token string      `json:"token"`
	User  UserProfile `json:"usuario"`
}

// Store persists the session pair. Load returns nil, nil when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*Persisted, error)
	Save(ctx context.Context, p Persisted) error
	Clear(ctx context.Context) error
}

// Validator checks a persisted token against the backend.
type Validator interface {
	ValidateSession(ctx context.Context, token string) error
}

// Controller owns the session state for one browser session or terminal process.
type Controller struct {
	mu        sync.RWMutex
	state     State
	store     Store
	validator Validator
	log       logrus.FieldLogger
}

// NewController returns a controller in the checking state.
func NewController(store Store, validator Validator, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		state:     State{Checking: true},
		store:     store,
		validator: validator,
		log:       log.WithField("component", "session"),
	}
}

// Start restores a persisted session if the backend still accepts its token.
// Any failure leaves the controller unauthenticated with the store cleared.
// Checking is always false on return.
func (c *Controller) Start(ctx context.Context) State {
	p, err := c.store.Load(ctx)
	if err != nil {
		c.log.WithError(err).Warn("could not read persisted session")
		c.clearStore(ctx)
		return c.finish(State{})
	}
	if p == nil || p.Token == "" {
		return c.finish(State{})
	}

	if c.validator == nil {
		c.log.Warn("no session validator configured, discarding persisted session")
		c.clearStore(ctx)
		return c.finish(State{})
	}
	if err := c.validator.ValidateSession(ctx, p.Token); err != nil {
		c.log.WithError(err).Info("persisted session rejected")
		c.clearStore(ctx)
		return c.finish(State{})
	}

	user := p.User
	return c.finish(State{Token: p.Token, User: &user, Authenticated: true})
}

// Login sets the authenticated state and persists the pair. The in-memory
// state is kept even when persisting fails; the error is returned so the
// caller can tell the user the session will not survive a restart.
func (c *Controller) Login(ctx context.Context, token string, user UserProfile) error {
	if token == "" {
		return ErrEmptyToken
	}
	u := user
	c.mu.Lock()
	c.state = State{Token: token, User: &u, Authenticated: true}
	c.mu.Unlock()

	if err := c.store.Save(ctx, Persisted{Token: token, User: user}); err != nil {
		c.log.WithError(err).Warn("could not persist session")
		return err
	}
	return nil
}

// Logout clears memory and persisted state. The backend is not contacted.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.log.WithError(err).Warn("could not clear persisted session")
		return err
	}
	return nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

func (c *Controller) finish(s State) State {
	s.Checking = false
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	return c.State()
}

func (c *Controller) clearStore(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.WithError(err).Warn("could not clear persisted session")
	}
}
