package auth

import (
	"context"
	"fmt"
	"net/http"

	"commission-board/internal/logger"
	"commission-board/internal/models"
)

// IdentityProvider is the slice of the Discord client the gate needs.
type IdentityProvider interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error)
	FetchIdentity(ctx context.Context, pair models.TokenPair) (*models.UserSession, error)
}

// SessionStore is the slice of the cookie session store the gate needs.
type SessionStore interface {
	Tokens(r *http.Request) (*models.TokenPair, bool)
	Save(w http.ResponseWriter, r *http.Request, pair *models.TokenPair) error
	Destroy(w http.ResponseWriter, r *http.Request) error
}

type contextKey string

const (
	identityKey contextKey = "identity"
	adminKey    contextKey = "is_admin"
)

// Identity returns the resolved user for the request, or nil outside a
// gated route.
func Identity(ctx context.Context) *models.UserSession {
	if us, ok := ctx.Value(identityKey).(*models.UserSession); ok {
		return us
	}
	return nil
}

// IsAdmin reports whether the resolved identity is the administrator.
func IsAdmin(ctx context.Context) bool {
	if admin, ok := ctx.Value(adminKey).(bool); ok {
		return admin
	}
	return false
}

// WithIdentity stashes a resolved identity in the context. Exported for
// handler tests; the gate is the only production caller.
func WithIdentity(ctx context.Context, us *models.UserSession, admin bool) context.Context {
	ctx = context.WithValue(ctx, identityKey, us)
	return context.WithValue(ctx, adminKey, admin)
}

// Gate is the single authorization choke point. Every page render and
// every mutating API call runs the same sequence: resolve session,
// exchange a callback code if present, refresh identity, persist the
// rotated pair, then check route-level access.
type Gate struct {
	Provider IdentityProvider
	Sessions SessionStore
	AdminID  string
	Logger   *logger.Logger
}

func NewGate(provider IdentityProvider, sessions SessionStore, adminID string, log *logger.Logger) *Gate {
	return &Gate{
		Provider: provider,
		Sessions: sessions,
		AdminID:  adminID,
		Logger:   log,
	}
}

// Pages authenticates browser-facing routes. Unauthenticated requests are
// redirected to the provider's authorization URL, and a ?code= query
// parameter (the OAuth callback) is exchanged for a token pair first.
func (g *Gate) Pages() func(http.Handler) http.Handler {
	return g.middleware(false)
}

// API authenticates API routes. A missing session is a hard 403; identity
// refresh failures still redirect to the authorization URL so a client
// with stale tokens re-enters the login flow.
func (g *Gate) API() func(http.Handler) http.Handler {
	return g.middleware(true)
}

func (g *Gate) middleware(api bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pair, ok := g.Sessions.Tokens(r)

			// Post-OAuth-callback: pages arrive with ?code= on first
			// load. The code wins over whatever the cookie holds.
			if !api {
				if code := r.URL.Query().Get("code"); code != "" {
					exchanged, err := g.Provider.ExchangeCode(r.Context(), code)
					if err != nil {
						g.Logger.LogAuth("EXCHANGE", fmt.Sprintf("Code exchange failed: %v", err))
						http.Redirect(w, r, g.Provider.AuthorizeURL(), http.StatusFound)
						return
					}
					pair, ok = exchanged, true
				}
			}

			if !ok {
				if api {
					w.WriteHeader(http.StatusForbidden)
				} else {
					http.Redirect(w, r, g.Provider.AuthorizeURL(), http.StatusFound)
				}
				return
			}

			us, err := g.Provider.FetchIdentity(r.Context(), *pair)
			if err != nil || us.User == nil {
				g.Logger.LogAuth("REFRESH", "Identity refresh failed, destroying session")
				if derr := g.Sessions.Destroy(w, r); derr != nil {
					g.Logger.Error("AUTH", fmt.Sprintf("Failed to destroy session: %v", derr))
				}
				http.Redirect(w, r, g.Provider.AuthorizeURL(), http.StatusFound)
				return
			}

			// Persist the rotated pair before the handler writes anything,
			// so the next request sees the new tokens.
			if err := g.Sessions.Save(w, r, &us.Tokens); err != nil {
				g.Logger.Error("AUTH", fmt.Sprintf("Failed to persist session: %v", err))
				http.Error(w, "session error", http.StatusInternalServerError)
				return
			}

			admin := us.User.ID == g.AdminID
			ctx := WithIdentity(r.Context(), us, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAPI restricts an already-authenticated API route to the
// administrator. Mismatches get a bare 403, indistinguishable from a
// missing resource.
func (g *Gate) AdminAPI() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			us := Identity(r.Context())
			if us == nil || us.User == nil || !IsAdmin(r.Context()) {
				if us != nil && us.User != nil {
					g.Logger.LogSecurity("ADMIN", fmt.Sprintf("Non-admin user %s hit an admin route", us.User.ID))
				}
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminPages is the page flavor of the admin check: non-admins are sent
// back to the dashboard instead of seeing an error page.
func (g *Gate) AdminPages() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
