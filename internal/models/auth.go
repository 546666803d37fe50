package models

// TokenPair is the access/refresh token pair issued by Discord, stored
// JSON-encoded inside the session cookie.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// DiscordUser is the sanitized identity fetched from the provider.
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	AvatarURL     string `json:"avatarURL"`
	Discriminator string `json:"discriminator"`
}

// UserSession is what the identity provider hands back for one request:
// the (possibly rotated) token pair and the resolved identity. User is nil
// when the refresh succeeded but the identity fetch itself failed.
type UserSession struct {
	Tokens TokenPair    `json:"tokens"`
	User   *DiscordUser `json:"user"`
}
