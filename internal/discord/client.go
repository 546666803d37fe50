package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"commission-board/internal/config"
	"commission-board/internal/logger"
	"commission-board/internal/models"
)

// tokenResponse is the raw payload of the provider's token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// meResponse is the raw payload of GET /oauth2/@me.
type meResponse struct {
	User struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		Avatar        string `json:"avatar"`
		Discriminator string `json:"discriminator"`
	} `json:"user"`
}

// Client talks to Discord's OAuth2 endpoints. It holds no per-user state;
// the caller owns persisting returned token pairs.
type Client struct {
	cfg    config.DiscordConfig
	http   *http.Client
	cache  *IdentityCache
	logger *logger.Logger
}

// NewClient creates a provider client. cache may be nil to disable
// identity caching.
func NewClient(cfg config.DiscordConfig, httpClient *http.Client, cache *IdentityCache, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		cache:  cache,
		logger: log,
	}
}

// AuthorizeURL is where unauthenticated users are sent to log in.
func (c *Client) AuthorizeURL() string {
	return fmt.Sprintf(
		"https://discord.com/api/oauth2/authorize?response_type=code&redirect_uri=%s&client_id=%s&scope=identify",
		url.QueryEscape(c.cfg.RedirectURI),
		c.cfg.ClientID,
	)
}

// ExchangeCode trades an OAuth2 authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", c.cfg.RedirectURI)

	return c.requestToken(ctx, data)
}

// Refresh trades a refresh token for a fresh token pair. Discord rotates
// both tokens on every refresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)
	data.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, data)
}

func (c *Client) requestToken(ctx context.Context, data url.Values) (*models.TokenPair, error) {
	tokenURL := c.cfg.APIBase + "/oauth2/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("DISCORD", fmt.Sprintf("Token endpoint request failed: %v", err))
		return nil, fmt.Errorf("token endpoint error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("DISCORD", fmt.Sprintf("Failed to close token response body: %v", cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Warn("DISCORD", fmt.Sprintf("Token endpoint returned %s: %s", resp.Status, string(bodyBytes)))
		return nil, fmt.Errorf("token endpoint returned status: %s", resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// FetchIdentity resolves the token pair into a sanitized identity. The
// identity cache is consulted first; on a miss the pair is refreshed and
// GET /oauth2/@me is called with the rotated access token, so the caller
// always gets back the pair it must persist. If the identity fetch fails
// after a successful refresh, the rotated pair is returned with a nil
// User so the caller does not lose the new tokens.
func (c *Client) FetchIdentity(ctx context.Context, pair models.TokenPair) (*models.UserSession, error) {
	if c.cache != nil {
		if user, err := c.cache.Get(ctx, pair.AccessToken); err != nil {
			c.logger.Warn("DISCORD", fmt.Sprintf("Identity cache lookup failed: %v", err))
		} else if user != nil {
			return &models.UserSession{Tokens: pair, User: user}, nil
		}
	}

	rotated, err := c.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh failed: %w", err)
	}

	user, err := c.currentUser(ctx, rotated.AccessToken)
	if err != nil {
		c.logger.Warn("DISCORD", fmt.Sprintf("Identity fetch failed after refresh: %v", err))
		return &models.UserSession{Tokens: *rotated, User: nil}, nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, rotated.AccessToken, user); err != nil {
			c.logger.Warn("DISCORD", fmt.Sprintf("Identity cache store failed: %v", err))
		}
	}

	return &models.UserSession{Tokens: *rotated, User: user}, nil
}

func (c *Client) currentUser(ctx context.Context, accessToken string) (*models.DiscordUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBase+"/oauth2/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity endpoint error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("DISCORD", fmt.Sprintf("Failed to close identity response body: %v", cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity endpoint returned status: %s", resp.Status)
	}

	var me meResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	return &models.DiscordUser{
		ID:            me.User.ID,
		Username:      me.User.Username,
		AvatarURL:     fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png?size=40", me.User.ID, me.User.Avatar),
		Discriminator: me.User.Discriminator,
	}, nil
}
