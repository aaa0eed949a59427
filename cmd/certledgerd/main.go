package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opencertify/certledger/internal/certifier/handler"
	"github.com/opencertify/certledger/internal/certifier/repository"
	"github.com/opencertify/certledger/internal/certifier/service"
	"github.com/opencertify/certledger/internal/health"
	"github.com/opencertify/certledger/internal/identity"
	"github.com/opencertify/certledger/internal/ledger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("certledgerd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("certledger")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("auth.token_secret", "")
	viper.SetDefault("auth.token_ttl_seconds", 3600)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Signer roster (role/permission simulator) ────────────────────────────
	var signers []identity.Signer
	if err := viper.UnmarshalKey("signers", &signers); err != nil {
		return fmt.Errorf("parse signers config: %w", err)
	}
	if len(signers) == 0 {
		signers = identity.DefaultSigners()
		logger.Info("no signers configured, using demo roster")
	}
	roster := identity.NewRegistry(signers)

	// ── Readiness state ───────────────────────────────────────────────────────
	// Dependencies connect in a defined order: store first, then the ledger
	// adapter. Mutating routes answer 503 until both report ready.
	ready := health.NewState("store", "ledger")

	// ── Store and ledger backends ─────────────────────────────────────────────
	var (
		store   repository.CertStore
		chain   ledger.Ledger
		backend string
	)

	dbURL := viper.GetString("database.url")
	if dbURL != "" {
		db, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		store = repository.NewPostgresStore(db)
		ready.SetReady("store")

		chain = ledger.NewPostgresLedger(db, roster, logger)
		backend = "postgres"
		ready.SetReady("ledger")
	} else {
		logger.Warn("no database configured — using in-memory store and ledger (demo mode)")
		store = repository.NewMemoryStore()
		ready.SetReady("store")
		chain = ledger.NewMemory(roster)
		backend = "memory"
		ready.SetReady("ledger")
	}

	if height, err := chain.Height(context.Background()); err == nil {
		logger.Info("certificate ledger ready", zap.Int64("height", height))
	}

	// ── Tokens ────────────────────────────────────────────────────────────────
	secret := []byte(viper.GetString("auth.token_secret"))
	if len(secret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate token secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(buf))
		logger.Warn("auth.token_secret not set — generated an ephemeral secret; tokens will not survive restarts")
	}

	httpPort := viper.GetInt("server.port")
	issuerURL := fmt.Sprintf("http://localhost:%d", httpPort)
	tokenTTL := time.Duration(viper.GetInt("auth.token_ttl_seconds")) * time.Second
	tokens := identity.NewTokenIssuer(secret, issuerURL, tokenTTL)

	// ── Wire up layers ────────────────────────────────────────────────────────
	svc := service.NewCertificateService(store, chain, logger)
	certHandler := handler.NewCertificateHandler(svc, logger)
	ledgerHandler := handler.NewLedgerHandler(chain, backend, logger)
	authHandler := handler.NewAuthHandler(roster, tokens, logger)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Signer"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	// Liveness, readiness, metrics (never gated on readiness)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", ready.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes: readiness-gated, with caller identity resolution
	api := router.Group("/")
	api.Use(ready.Middleware())
	api.Use(identity.CallerIdentity(roster, tokens))
	certHandler.Register(api)
	ledgerHandler.Register(api)
	authHandler.Register(api)

	// ── Serve ─────────────────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("certledgerd listening", zap.Int("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down certledgerd...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("certledgerd stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
