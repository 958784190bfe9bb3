package httpx

import (
	"context"
	"net/http"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/pkg/crypto"
)

type identityContextKey string

const contextKeyIdentity identityContextKey = "tracker-identity"

// identity couples the resolved user with the session token that produced it,
// so logout can invalidate the right session.
type identity struct {
	User  *domain.User
	Token string
}

type contextSetter interface {
	SetContext(context.Context)
}

// withIdentity resolves the signed session cookie into an identity and stores
// it on the request context. Handlers receive an explicit identity (or none);
// nothing downstream reads the cookie again. Resolution failures of any kind
// read as anonymous.
func (r *Router) withIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := r.resolveIdentity(req)
		if id == nil {
			next(w, req)
			return
		}
		ctx := context.WithValue(req.Context(), contextKeyIdentity, *id)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

func (r *Router) resolveIdentity(req *http.Request) *identity {
	cookie, err := req.Cookie(r.cfg.SessionCookieName)
	if err != nil {
		return nil
	}
	token, err := crypto.VerifyCookie(r.cfg.SessionSecret, cookie.Value)
	if err != nil {
		r.logger.Warn("session cookie failed verification", "path", req.URL.Path)
		return nil
	}
	user, err := r.auth.Identify(req.Context(), token)
	if err != nil {
		r.logger.Error("identity lookup failed", "error", err, "path", req.URL.Path)
		return nil
	}
	if user == nil {
		return nil
	}
	return &identity{User: user, Token: token}
}

// identityFromContext extracts the authenticated identity, if any.
func identityFromContext(ctx context.Context) (identity, bool) {
	value := ctx.Value(contextKeyIdentity)
	if value == nil {
		return identity{}, false
	}
	id, ok := value.(identity)
	return id, ok
}

func (r *Router) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cfg.SessionCookieName,
		Value:    crypto.SignCookie(r.cfg.SessionSecret, token),
		Path:     "/",
		MaxAge:   int(r.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.cfg.Environment == "production",
	})
}

func (r *Router) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
