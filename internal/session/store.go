package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"commission-board/internal/models"
)

const (
	// CookieName is the single session cookie.
	CookieName = "auth"
	// userKey is the one slot the session holds: the current token pair.
	userKey = "user"

	maxAge = 30 * 24 * 60 * 60
)

// Store wraps a signed (and optionally encrypted) cookie store holding
// the current token pair. The cookie is the only server-side memory of
// identity; every handler that rotates tokens must Save before writing
// a non-redirect response.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore builds the cookie store. encryptionKey may be empty, in which
// case cookies are signed but not encrypted.
func NewStore(secret, encryptionKey string, secure bool) *Store {
	var cs *sessions.CookieStore
	if encryptionKey != "" {
		cs = sessions.NewCookieStore([]byte(secret), []byte(encryptionKey))
	} else {
		cs = sessions.NewCookieStore([]byte(secret))
	}

	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}

	return &Store{cookies: cs}
}

// Tokens reads the token pair out of the request's session cookie.
// A missing, expired or tampered cookie reads as absent.
func (s *Store) Tokens(r *http.Request) (*models.TokenPair, bool) {
	sess, err := s.cookies.Get(r, CookieName)
	if err != nil {
		return nil, false
	}

	raw, ok := sess.Values[userKey].(string)
	if !ok || raw == "" {
		return nil, false
	}

	var pair models.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return nil, false
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return nil, false
	}

	return &pair, true
}

// Save writes the token pair into the session cookie on the response.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, pair *models.TokenPair) error {
	sess, err := s.cookies.Get(r, CookieName)
	if err != nil {
		// A bad existing cookie still yields a fresh session object;
		// only a broken store configuration gets here.
		sess, err = s.cookies.New(r, CookieName)
		if err != nil && sess == nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}

	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal token pair: %w", err)
	}

	sess.Values[userKey] = string(raw)
	return sess.Save(r, w)
}

// Destroy clears the session cookie entirely.
func (s *Store) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.cookies.Get(r, CookieName)
	if sess == nil {
		return nil
	}
	delete(sess.Values, userKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
