package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-board/internal/auth"
	"commission-board/internal/logger"
	"commission-board/internal/models"
)

const adminID = "999999999999"

type fakeIdentityProvider struct {
	exchangeErr   error
	identityErr   error
	identityUser  *models.DiscordUser
	exchangedCode string
}

func (f *fakeIdentityProvider) AuthorizeURL() string {
	return "https://discord.com/api/oauth2/authorize?client_id=test"
}

func (f *fakeIdentityProvider) ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error) {
	f.exchangedCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &models.TokenPair{AccessToken: "exchanged-access", RefreshToken: "exchanged-refresh"}, nil
}

func (f *fakeIdentityProvider) FetchIdentity(ctx context.Context, pair models.TokenPair) (*models.UserSession, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return &models.UserSession{
		Tokens: models.TokenPair{AccessToken: "rotated-access", RefreshToken: "rotated-refresh"},
		User:   f.identityUser,
	}, nil
}

type fakeSessionStore struct {
	pair      *models.TokenPair
	saved     *models.TokenPair
	destroyed bool
}

func (f *fakeSessionStore) Tokens(r *http.Request) (*models.TokenPair, bool) {
	if f.pair == nil {
		return nil, false
	}
	return f.pair, true
}

func (f *fakeSessionStore) Save(w http.ResponseWriter, r *http.Request, pair *models.TokenPair) error {
	f.saved = pair
	return nil
}

func (f *fakeSessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	f.destroyed = true
	return nil
}

func user(id string) *models.DiscordUser {
	return &models.DiscordUser{ID: id, Username: "someone", Discriminator: "0001"}
}

func newGate(provider *fakeIdentityProvider, sessions *fakeSessionStore) *auth.Gate {
	return auth.NewGate(provider, sessions, adminID, logger.NewLogger())
}

// probe records whether the inner handler ran and what identity it saw.
type probe struct {
	called   bool
	identity *models.UserSession
	admin    bool
}

func (p *probe) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.called = true
		p.identity = auth.Identity(r.Context())
		p.admin = auth.IsAdmin(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIWithoutSessionIs403(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user("123")}
	sessions := &fakeSessionStore{}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	newGate(provider, sessions).API()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, p.called)
}

func TestPagesWithoutSessionRedirectsToProvider(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user("123")}
	sessions := &fakeSessionStore{}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	newGate(provider, sessions).Pages()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, provider.AuthorizeURL(), rec.Header().Get("Location"))
	assert.False(t, p.called)
}

func TestPagesExchangesCallbackCode(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user("123")}
	sessions := &fakeSessionStore{}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?code=callback-code", nil)
	newGate(provider, sessions).Pages()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "callback-code", provider.exchangedCode)
	assert.True(t, p.called)
	require.NotNil(t, p.identity)
	assert.Equal(t, "123", p.identity.User.ID)
}

func TestPagesExchangeFailureRedirects(t *testing.T) {
	provider := &fakeIdentityProvider{exchangeErr: errors.New("bad code"), identityUser: user("123")}
	sessions := &fakeSessionStore{}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?code=expired", nil)
	newGate(provider, sessions).Pages()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, provider.AuthorizeURL(), rec.Header().Get("Location"))
	assert.False(t, p.called)
}

func TestIdentityFailureDestroysSessionAndRedirects(t *testing.T) {
	provider := &fakeIdentityProvider{identityErr: errors.New("refresh failed")}
	sessions := &fakeSessionStore{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/download", nil)
	newGate(provider, sessions).API()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, provider.AuthorizeURL(), rec.Header().Get("Location"))
	assert.True(t, sessions.destroyed)
	assert.False(t, p.called)
}

func TestNilIdentityAfterRefreshDestroysSession(t *testing.T) {
	// Refresh succeeded, identity fetch failed: User comes back nil.
	provider := &fakeIdentityProvider{identityUser: nil}
	sessions := &fakeSessionStore{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/read", nil)
	newGate(provider, sessions).API()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, sessions.destroyed)
	assert.False(t, p.called)
}

func TestRotatedPairIsPersisted(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user("123")}
	sessions := &fakeSessionStore{pair: &models.TokenPair{AccessToken: "old", RefreshToken: "old"}}
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/read", nil)
	newGate(provider, sessions).API()(p.handler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessions.saved)
	assert.Equal(t, "rotated-access", sessions.saved.AccessToken)
	assert.True(t, p.called)
}

func TestAdminAPIRejectsNonAdmin(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user("123")}
	sessions := &fakeSessionStore{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	gate := newGate(provider, sessions)
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/commission/create", nil)
	gate.API()(gate.AdminAPI()(p.handler())).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, p.called)
}

func TestAdminAPIAllowsAdmin(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user(adminID)}
	sessions := &fakeSessionStore{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	gate := newGate(provider, sessions)
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/commission/create", nil)
	gate.API()(gate.AdminAPI()(p.handler())).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, p.called)
	assert.True(t, p.admin)
}

func TestAdminPagesRedirectsHome(t *testing.T) {
	provider := &fakeIdentityProvider{identityUser: user("123")}
	sessions := &fakeSessionStore{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	gate := newGate(provider, sessions)
	p := &probe{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	gate.Pages()(gate.AdminPages()(p.handler())).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, p.called)
}
