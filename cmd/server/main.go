package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/snapshare/internal/auth"
	"github.com/ayush/snapshare/internal/config"
	"github.com/ayush/snapshare/internal/logger"
	"github.com/ayush/snapshare/internal/posts"
	"github.com/ayush/snapshare/internal/server"
	"github.com/ayush/snapshare/internal/store"
	"github.com/ayush/snapshare/internal/web"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}
	ctx := context.Background()

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("mongo connect", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)

	postStore := store.NewMongoPostStore(mongoDB)
	if err := postStore.EnsureIndexes(ctx); err != nil {
		log.Fatal("mongo indexes", "error", err)
	}

	// ── Users ────────────────────────────────────────────────
	var users auth.UserStore
	switch cfg.UserStore {
	case config.UserStorePostgres:
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", "error", err)
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal("postgres migrate", "error", err)
		}
		users = pgStore
	default:
		mongoUsers := store.NewMongoUserStore(mongoDB)
		if err := mongoUsers.EnsureIndexes(ctx); err != nil {
			log.Fatal("mongo indexes", "error", err)
		}
		users = mongoUsers
	}

	// ── Images ───────────────────────────────────────────────
	var blobs posts.BlobStore
	switch cfg.BlobStore {
	case config.BlobStoreMinio:
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatal("minio connect", "error", err)
		}
		blobs = minioStore
	default:
		blobs = store.NewGridFSStore(mongoDB, "images")
	}

	// ── Sessions ─────────────────────────────────────────────
	var sessionStore auth.SessionStore
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		log.Warn("using in-memory sessions; logins are lost on restart")
		sessionStore = auth.NewMemorySessionStore(auth.RealClock{})
	default:
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal("redis connect", "error", err)
		}
		defer rdb.Close()
		sessionStore = auth.NewRedisSessionStore(rdb)
	}
	sessions := auth.NewManager(sessionStore, cfg.SecretKey, cfg.CookieSecure, auth.RealClock{})

	// ── Handlers ─────────────────────────────────────────────
	view, err := web.NewRenderer(log, auth.IdentityFrom)
	if err != nil {
		log.Fatal("templates", "error", err)
	}
	authHandler := auth.NewHandler(users, sessions, view, log)
	postsHandler := posts.NewHandler(postStore, blobs, view, log)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:        authHandler,
		PostsHandler:       postsHandler,
		Sessions:           sessions,
		View:               view,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		RequestLogging:     true,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("listening", "port", cfg.Port, "env", cfg.AppEnv, "users", cfg.UserStore, "blobs", cfg.BlobStore, "sessions", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
