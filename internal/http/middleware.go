package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

type contextKey string

const ownerContextKey contextKey = "cart-owner"

// SessionCookieName carries the anonymous session identifier for shoppers
// who are not signed in.
const SessionCookieName = "fs_session"

// IdentityMiddleware resolves the request to a cart owner. Signed-in
// requests arrive with X-Account-ID set by the auth layer in front of this
// service; anonymous requests get a session cookie minted on first contact.
// Credential validation happens upstream, never here.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var owner domain.OwnerKey

		if accountID := r.Header.Get("X-Account-ID"); accountID != "" {
			owner = domain.AccountOwner(accountID)
		} else if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
			owner = domain.GuestOwner(c.Value)
		} else {
			sessionID := uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(domain.GuestRetention / time.Second),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			owner = domain.GuestOwner(sessionID)
		}

		ctx := context.WithValue(r.Context(), ownerContextKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerFromContext returns the resolved cart owner, or an invalid zero key
// when identity resolution did not run.
func ownerFromContext(ctx context.Context) domain.OwnerKey {
	owner, _ := ctx.Value(ownerContextKey).(domain.OwnerKey)
	return owner
}

// guestSessionID returns the anonymous session accompanying a signed-in
// request, used by merge to find the guest cart left behind at login.
func guestSessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
