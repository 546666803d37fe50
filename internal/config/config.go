package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Discord DiscordConfig
	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Upload  UploadConfig
	Env     string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AdminUserID  string
	// APIBase is overridable so tests can point the client at a fake
	// provider. Defaults to the public v10 endpoint.
	APIBase string
}

type SessionConfig struct {
	Secret string
	// EncryptionKey enables cookie payload encryption on top of signing
	// when set (16, 24 or 32 bytes).
	EncryptionKey string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr string
}

type UploadConfig struct {
	Dir string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8087"),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
			IdleTimeout:  time.Duration(getEnvInt("SERVER_IDLE_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Discord: DiscordConfig{
			ClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			ClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("DISCORD_REDIRECT_URI", ""),
			AdminUserID:  getEnv("ADMIN_USER_ID", ""),
			APIBase:      getEnv("DISCORD_API_BASE", "https://discord.com/api/v10"),
		},
		Session: SessionConfig{
			Secret:        getEnv("SESSION_SECRET", ""),
			EncryptionKey: getEnv("SESSION_ENC_KEY", ""),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("DB_NAME", "commissions"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Upload: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Env: getEnv("ENV", "development"),
	}
}

// Production reports whether the service should set production-only
// behavior such as the Secure cookie flag.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
