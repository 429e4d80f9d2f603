package panels

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/session"
)

// LoginForm is the login screen input. Register switches the form to
// account creation, which only adds the confirmation check: the backend
// creates unknown users on first login.
type LoginForm struct {
	Email    string
	Password string
	Confirm  string
	Register bool
}

// LoginResult is a successful login ready to hand to session.Controller.
type LoginResult struct {
	Token string
	User  session.UserProfile
}

// Login validates the form and exchanges the credentials for a token.
func Login(ctx context.Context, client *backend.Client, log logrus.FieldLogger, f LoginForm) (*LoginResult, Notice) {
	email := strings.TrimSpace(f.Email)
	if email == "" || f.Password == "" {
		return nil, failure("Por favor completa todos los campos")
	}
	if f.Register && f.Password != f.Confirm {
		return nil, failure("Las contraseñas no coinciden")
	}

	res, err := client.Login(ctx, email, f.Password)
	if err != nil {
		if log != nil {
			log.WithFields(logrus.Fields{"action": "login", "error": err}).Warn("login failed")
		}
		return nil, failure(backend.Detail(err, "Error al iniciar sesión"))
	}
	user := ProfileFromUser(res.User)
	return &LoginResult{Token: res.Token, User: user}, success("Bienvenido, "+user.DisplayName()+"!", "")
}

// ProfileFromUser converts the backend's usuario object.
func ProfileFromUser(u backend.User) session.UserProfile {
	p := session.UserProfile{ID: u.ID.String(), Email: u.Email, Name: u.Name, Role: u.Role}
	if len(u.Extra) > 0 {
		p.Extra = make(map[string]any, len(u.Extra))
		for k, v := range u.Extra {
			p.Extra[k] = v
		}
	}
	return p
}
