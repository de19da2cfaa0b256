package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/envpanel/internal/application"
	"github.com/ericfisherdev/envpanel/internal/domain/model"
)

const sessionCookieName = "envpanel_session"

type (
	sessionContextKey struct{}
	csrfContextKey    struct{}
)

// sessionFromContext returns the session stored by requireSession.
func sessionFromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(model.Session)
	return s, ok
}

// csrfTokenFromContext returns the CSRF token requireSession resolved for the
// request, so every form on a page carries the same token.
func csrfTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(csrfContextKey{}).(string)
	return t, ok
}

func sessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
}

// requireSession resolves the session cookie without contacting the node API
// and redirects to the sign-in page when there is no usable session.
// State-changing requests must also carry a valid CSRF token.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.gate.Lookup(r.Context(), sessionIDFromRequest(r))
		if err != nil {
			if !errors.Is(err, application.ErrNoSession) {
				h.logger.Error("session lookup failed", "error", err)
			}
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		if r.Method == http.MethodPost && !validateCSRF(r) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		ctx = context.WithValue(ctx, csrfContextKey{}, ensureCSRFToken(w, r, h.cookieSecure))
		next(w, r.WithContext(ctx))
	}
}
