package http

import (
	"context"
	nethttp "net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/session"
	"protein-analysis-ui/internal/view"
)

type sessionCtxKey struct{}

// indexHandler is an application start: a persisted session is validated
// against the backend before the main view is shown.
func (a *app) indexHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	ctl := session.NewController(a.cookies.For(w, r), a.backend, a.log)
	st := ctl.Start(r.Context())
	notices := a.cookies.flashes(w, r)
	if !st.Authenticated {
		a.pages.renderLogin(w, nethttp.StatusOK, loginPage{Notices: notices})
		return
	}

	p := session.Persisted{Token: st.Token, User: *st.User}
	ctx := panels.WithActor(r.Context(), p.User.Email)
	a.renderView(w, r.WithContext(context.WithValue(ctx, sessionCtxKey{}, p)), view.Dashboard, notices)
}

func (a *app) loginPageHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if p, _ := a.cookies.For(w, r).Load(r.Context()); p != nil {
		nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
		return
	}
	a.pages.renderLogin(w, nethttp.StatusOK, loginPage{Notices: a.cookies.flashes(w, r)})
}

func (a *app) loginHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if err := r.ParseForm(); err != nil {
		a.pages.renderLogin(w, nethttp.StatusBadRequest, loginPage{Notices: []panels.Notice{errorNotice("Formulario inválido")}})
		return
	}
	form := panels.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm"),
		Register: r.PostFormValue("mode") == "register",
	}
	res, notice := panels.Login(r.Context(), a.backend, a.log, form)
	if res == nil {
		a.pages.renderLogin(w, nethttp.StatusOK, loginPage{Email: form.Email, Register: form.Register, Notices: []panels.Notice{notice}})
		return
	}

	ctl := session.NewController(a.cookies.For(w, r), a.backend, a.log)
	if err := ctl.Login(r.Context(), res.Token, res.User); err != nil {
		a.pages.renderLogin(w, nethttp.StatusInternalServerError, loginPage{Email: form.Email, Notices: []panels.Notice{errorNotice("No se pudo guardar la sesión")}})
		return
	}
	a.cookies.addFlash(w, r, notice)
	nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
}

// logoutHandler clears the session locally. The backend is not told.
func (a *app) logoutHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	ctl := session.NewController(a.cookies.For(w, r), a.backend, a.log)
	_ = ctl.Logout(r.Context())
	a.cookies.addFlash(w, r, panels.Notice{Kind: panels.NoticeInfo, Message: "Sesión cerrada"})
	nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
}

// requireSession reads the cookie session without re-validating it.
// Requests without one go back to the start page.
func (a *app) requireSession(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		p, err := a.cookies.For(w, r).Load(r.Context())
		if err != nil {
			a.log.WithError(err).Debug("unreadable session cookie")
		}
		if p == nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "not authenticated"})
				return
			}
			nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, *p)
		ctx = panels.WithActor(ctx, p.User.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func persistedFrom(ctx context.Context) session.Persisted {
	p, _ := ctx.Value(sessionCtxKey{}).(session.Persisted)
	return p
}

func callerFrom(r *nethttp.Request) panels.Caller {
	p := persistedFrom(r.Context())
	return panels.Caller{Token: p.Token, Actor: p.User.Email}
}

func (a *app) viewHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	tag, err := view.Parse(chi.URLParam(r, "tag"))
	if err != nil {
		nethttp.Error(w, "vista desconocida", nethttp.StatusNotFound)
		return
	}
	a.renderView(w, r, tag, a.cookies.flashes(w, r))
}

func (a *app) viewJSONHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	tag, err := view.Parse(chi.URLParam(r, "tag"))
	if err != nil {
		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}
	rendered, err := a.mount(r, tag)
	if err != nil {
		writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"meta": map[string]any{"tag": rendered.Tag, "label": rendered.Tag.Label()},
		"data": rendered.Model,
	})
}

// mount selects tag on a fresh router and loads its panel. Every request
// is its own mount.
func (a *app) mount(r *nethttp.Request, tag view.Tag) (view.Rendered, error) {
	router := view.NewRouter(a.panels.Panels()...)
	if err := router.Select(tag); err != nil {
		return view.Rendered{}, err
	}
	return router.Render(r.Context(), persistedFrom(r.Context()).Token)
}

func (a *app) renderView(w nethttp.ResponseWriter, r *nethttp.Request, tag view.Tag, notices []panels.Notice) {
	rendered, err := a.mount(r, tag)
	if err != nil {
		a.log.WithError(err).WithField("view", tag).Error("mount failed")
		nethttp.Error(w, "no se pudo cargar la vista", nethttp.StatusInternalServerError)
		return
	}
	a.renderMain(w, r, tag, rendered.Model, notices...)
}

// renderMain writes the main view around one panel model. Pending flashes
// are shown before notices produced by the current request.
func (a *app) renderMain(w nethttp.ResponseWriter, r *nethttp.Request, tag view.Tag, model any, notices ...panels.Notice) {
	p := persistedFrom(r.Context())
	page := mainPage{
		User:   p.User,
		Active: tag,
		Panel:  model,
	}
	for _, t := range view.All() {
		page.Nav = append(page.Nav, navItem{Tag: t, Label: t.Label(), Active: t == tag})
	}
	if n, ok := a.panels.UnresolvedAlerts(r.Context(), p.Token); ok {
		page.Badge, page.BadgeOK = n, true
	}
	for _, n := range notices {
		if !n.IsZero() {
			page.Notices = append(page.Notices, n)
		}
	}
	a.pages.renderMain(w, nethttp.StatusOK, page)
}

func errorNotice(msg string) panels.Notice {
	return panels.Notice{Kind: panels.NoticeError, Message: msg}
}
