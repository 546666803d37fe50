package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"commission-board/internal/auth"
	"commission-board/internal/commission"
	"commission-board/internal/commission/api"
	commissiondb "commission-board/internal/commission/db"
	"commission-board/internal/config"
	"commission-board/internal/discord"
	"commission-board/internal/logger"
	"commission-board/internal/session"
	"commission-board/internal/upload"
	"commission-board/internal/utils"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*mongo.Client, *redis.Client) {
	var mongoClient *mongo.Client
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to MongoDB (attempt %d/%d)", i+1, maxRetries))
		mongoClient, err = mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.Mongo.URI))
		if err == nil {
			err = mongoClient.Ping(ctx, nil)
			if err == nil {
				break
			}
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to MongoDB after %d attempts: %v", maxRetries, err))
	}
	log.Info("DATABASE", "MongoDB connection successful")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("DATABASE", fmt.Sprintf("Redis unavailable, identity caching disabled: %v", err))
			redisClient = nil
		} else {
			log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
		}
	} else {
		log.Info("CONFIG", "REDIS_ADDR not set, identity caching disabled")
	}

	return mongoClient, redisClient
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			w.Header().Set("X-Request-ID", requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", rec.status), time.Since(start).String())
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting commission board initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if cfg.Discord.ClientID == "" || cfg.Discord.ClientSecret == "" || cfg.Discord.RedirectURI == "" {
		log.Fatal("CONFIG", "DISCORD_CLIENT_ID, DISCORD_CLIENT_SECRET and DISCORD_REDIRECT_URI must be set")
	}
	if cfg.Discord.AdminUserID == "" {
		log.Fatal("CONFIG", "ADMIN_USER_ID not set")
	}
	if cfg.Session.Secret == "" {
		log.Fatal("CONFIG", "SESSION_SECRET not set")
	}

	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	mongoClient, redisClient := verifyConnections(ctx, cfg, log)
	defer func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Error("DATABASE", fmt.Sprintf("Mongo disconnect failed: %v", err))
		}
	}()
	if redisClient != nil {
		defer redisClient.Close()
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var identityCache *discord.IdentityCache
	if redisClient != nil {
		identityCache = discord.NewIdentityCache(redisClient)
	}
	provider := discord.NewClient(cfg.Discord, httpClient, identityCache, log)

	sessions := session.NewStore(cfg.Session.Secret, cfg.Session.EncryptionKey, cfg.Production())
	gate := auth.NewGate(provider, sessions, cfg.Discord.AdminUserID, log)

	uploads, err := upload.NewStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatal("UPLOAD", fmt.Sprintf("Failed to initialize upload store: %v", err))
	}

	repo := &commissiondb.DB{Mongo: mongoClient.Database(cfg.Mongo.Database)}
	service := commission.NewService(repo)

	handler := &api.Handler{
		Service:  service,
		Uploads:  uploads,
		Sessions: sessions,
		Logger:   log,
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(requestLogger(log))

	// Mutating endpoints are POST-only; a wrong method is a 400, not a
	// 405, so the routes cannot be probed with plain GETs.
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "You are required to use POST on this route.",
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// --- Pages (OAuth redirect target) ---
	r.Group(func(r chi.Router) {
		r.Use(gate.Pages())
		r.Get("/", handler.Dashboard)
	})
	log.Info("ROUTER", "Dashboard registered at /")

	// --- Authenticated API ---
	r.Group(func(r chi.Router) {
		r.Use(gate.API())

		r.Post("/api/logout", handler.Logout)
		r.Post("/api/download", handler.Download)
		r.Post("/api/read", handler.MarkRead)
		r.Post("/api/read/all", handler.MarkAllRead)

		r.Get("/api/commissions", handler.ListCommissions)
		r.Get("/api/commission/{code}", handler.GetCommission)
		r.Get("/api/updates/latest", handler.LatestUpdates)
		r.Get("/api/alert", handler.GetAlert)

		// --- Admin-only ---
		r.Group(func(r chi.Router) {
			r.Use(gate.AdminAPI())

			r.Post("/api/commission/create", handler.CreateCommission)
			r.Post("/api/commission/update", handler.PostUpdate)
			r.Post("/api/alert/create", handler.CreateAlert)
			r.Post("/api/alert/delete", handler.DeleteAlert)
		})
	})
	log.Info("ROUTER", "API routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Commission board running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Commission board shutdown complete")
	}
}
