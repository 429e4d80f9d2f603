package http

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/hkdf"

	"protein-analysis-ui/internal/config"
	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/session"
)

const (
	tokenKey = "token"
	userKey  = "usuario"
)

// cookieSessions keeps the token/user pair and pending toasts in signed,
// encrypted cookies.
type cookieSessions struct {
	store *sessions.CookieStore
	name  string
	flash string
	log   logrus.FieldLogger
}

func newCookieSessions(cfg config.Config, log logrus.FieldLogger) (*cookieSessions, error) {
	hashKey, blockKey, err := sessionKeys(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		log.Warn("APP_SESSION_SECRET not set, sessions will not survive a restart")
	}

	cs := sessions.NewCookieStore(hashKey, blockKey)
	cs.MaxAge(int(cfg.SessionMaxAge.Seconds()))
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.Secure = cfg.SessionSecure
	cs.Options.SameSite = nethttp.SameSiteLaxMode
	if cfg.SessionScope != config.SessionScopePersistent {
		cs.Options.MaxAge = 0
	}

	name := cfg.SessionCookie
	if name == "" {
		name = "protein_ui_session"
	}
	return &cookieSessions{store: cs, name: name, flash: name + "_flash", log: log}, nil
}

// sessionKeys derives the cookie signing and encryption keys from secret.
// An empty secret yields random keys.
func sessionKeys(secret string) (hashKey, blockKey []byte, err error) {
	if secret == "" {
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, nil, errors.New("could not generate session keys")
		}
		return hashKey, blockKey, nil
	}
	hashKey = make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("protein-ui cookie hash")), hashKey); err != nil {
		return nil, nil, err
	}
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("protein-ui cookie block")), blockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

// For returns the session.Store of one request.
func (c *cookieSessions) For(w nethttp.ResponseWriter, r *nethttp.Request) session.Store {
	return &requestStore{c: c, w: w, r: r}
}

func (c *cookieSessions) addFlash(w nethttp.ResponseWriter, r *nethttp.Request, n panels.Notice) {
	sess, _ := c.store.Get(r, c.flash)
	raw, err := json.Marshal(n)
	if err != nil {
		return
	}
	sess.Options.MaxAge = 0
	sess.AddFlash(string(raw))
	if err := sess.Save(r, w); err != nil {
		c.log.WithError(err).Warn("could not save flash")
	}
}

func (c *cookieSessions) flashes(w nethttp.ResponseWriter, r *nethttp.Request) []panels.Notice {
	sess, err := c.store.Get(r, c.flash)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	sess.Options.MaxAge = 0
	if err := sess.Save(r, w); err != nil {
		c.log.WithError(err).Warn("could not clear flashes")
	}
	out := make([]panels.Notice, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var n panels.Notice
		if json.Unmarshal([]byte(s), &n) == nil && !n.IsZero() {
			out = append(out, n)
		}
	}
	return out
}

type requestStore struct {
	c *cookieSessions
	w nethttp.ResponseWriter
	r *nethttp.Request
}

func (s *requestStore) Load(context.Context) (*session.Persisted, error) {
	if _, err := s.r.Cookie(s.c.name); errors.Is(err, nethttp.ErrNoCookie) {
		return nil, nil
	}
	sess, err := s.c.store.Get(s.r, s.c.name)
	if err != nil {
		return nil, err
	}
	token, _ := sess.Values[tokenKey].(string)
	if token == "" {
		return nil, nil
	}
	p := &session.Persisted{Token: token}
	if raw, ok := sess.Values[userKey].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.User); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *requestStore) Save(_ context.Context, p session.Persisted) error {
	sess, _ := s.c.store.Get(s.r, s.c.name)
	raw, err := json.Marshal(p.User)
	if err != nil {
		return err
	}
	sess.Values[tokenKey] = p.Token
	sess.Values[userKey] = string(raw)
	return sess.Save(s.r, s.w)
}

func (s *requestStore) Clear(context.Context) error {
	sess, _ := s.c.store.Get(s.r, s.c.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(s.r, s.w)
}
