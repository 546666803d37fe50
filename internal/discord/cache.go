package discord

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"commission-board/internal/models"
)

const (
	// identityKeyPrefix namespaces cached identities in Redis.
	identityKeyPrefix = "identity:"
	// IdentityTTL is how long a resolved identity is reused before the
	// provider is consulted again.
	IdentityTTL = 5 * time.Minute
	// ExpiryBuffer is subtracted from the cached entry's validity so an
	// entry is never served right at its expiry edge.
	ExpiryBuffer = 30 * time.Second
)

// cachedIdentity is the JSON document stored in Redis.
type cachedIdentity struct {
	User      models.DiscordUser `json:"user"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// IsValid checks the entry against the buffer window.
func (ci *cachedIdentity) IsValid() bool {
	if ci == nil || ci.User.ID == "" {
		return false
	}
	return time.Now().Add(ExpiryBuffer).Before(ci.ExpiresAt)
}

// IdentityCache keeps sanitized identities in Redis keyed by a hash of
// the access token, so bursts of page loads within one session do not
// hammer the provider with refresh calls.
type IdentityCache struct {
	Client *redis.Client
}

func NewIdentityCache(client *redis.Client) *IdentityCache {
	return &IdentityCache{Client: client}
}

func identityKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return identityKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached identity for the access token, or nil on a miss.
func (c *IdentityCache) Get(ctx context.Context, accessToken string) (*models.DiscordUser, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, identityKey(accessToken)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get identity from Redis: %w", err)
	}

	var entry cachedIdentity
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached identity: %w", err)
	}

	if !entry.IsValid() {
		return nil, nil
	}

	user := entry.User
	return &user, nil
}

// Set stores the identity under the access token for IdentityTTL.
func (c *IdentityCache) Set(ctx context.Context, accessToken string, user *models.DiscordUser) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	entry := cachedIdentity{
		User:      *user,
		ExpiresAt: time.Now().Add(IdentityTTL),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cached identity: %w", err)
	}

	// Redis TTL gets a little extra so IsValid, not key expiry, decides.
	ttl := IdentityTTL + ExpiryBuffer
	if err := c.Client.Set(ctx, identityKey(accessToken), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store identity in Redis: %w", err)
	}

	return nil
}
