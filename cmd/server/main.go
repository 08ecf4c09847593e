// prenotebook server: multi-user notes with session auth and public
// sharing. Notes live in a single SQLCipher-encrypted SQLite database;
// shared notes are additionally mirrored to object storage as standalone
// HTML pages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vedgupta/prenotebook/internal/api"
	"github.com/vedgupta/prenotebook/internal/auth"
	"github.com/vedgupta/prenotebook/internal/config"
	"github.com/vedgupta/prenotebook/internal/db"
	"github.com/vedgupta/prenotebook/internal/email"
	"github.com/vedgupta/prenotebook/internal/notes"
	"github.com/vedgupta/prenotebook/internal/obs"
	"github.com/vedgupta/prenotebook/internal/ratelimit"
	"github.com/vedgupta/prenotebook/internal/s3client"
)

const devBucketName = "prenotebook-dev"

// sessionCleanupInterval controls how often expired sessions are purged.
const sessionCleanupInterval = 1 * time.Hour

func main() {
	noEmail, noS3, addr := config.ParseFlags()

	obs.Init()
	logger := obs.Pkg("main")

	cfg := config.MustLoadConfig(noEmail, noS3, addr)
	cfg.PrintStartupSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	appDB, err := db.Open(cfg.DatabasePath(), cfg.MasterKey)
	if err != nil {
		logger.Error("db_open_failed", "path", cfg.DatabasePath(), "err", err)
		os.Exit(1)
	}
	defer appDB.Close()

	// Email
	var emailService email.EmailService
	if cfg.NoEmail {
		logger.Info("email_service", "mode", "mock")
		emailService = email.NewMockEmailService()
	} else {
		logger.Info("email_service", "mode", "resend", "from", cfg.ResendFromEmail)
		emailService = email.NewResendEmailService(cfg.ResendAPIKey, cfg.ResendFromEmail)
	}

	// Object storage for published note pages
	var s3 *s3client.Client
	if cfg.NoS3 {
		logger.Info("object_storage", "mode", "in-memory", "bucket", devBucketName)
		client, shutdown, err := s3client.NewInMemory(ctx, devBucketName)
		if err != nil {
			logger.Error("s3_init_failed", "err", err)
			os.Exit(1)
		}
		defer shutdown()
		s3 = client
	} else {
		logger.Info("object_storage", "mode", "s3", "bucket", cfg.AWSBucketName, "endpoint", cfg.AWSEndpointS3)
		s3, err = s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.AWSBucketName,
			PublicURL:       cfg.AWSPublicURL,
		})
		if err != nil {
			logger.Error("s3_init_failed", "err", err)
			os.Exit(1)
		}
	}

	// Services
	userService := auth.NewUserService(appDB, emailService, cfg.BaseURL)
	sessionService := auth.NewSessionService(appDB, cfg.SessionDuration)
	authMiddleware := auth.NewMiddleware(sessionService, userService)
	notesService := notes.NewService(appDB, notes.NewPublisher(s3))

	// Handlers
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	auth.NewHandlers(userService, sessionService, cfg.RequireSecureCookies()).RegisterRoutes(mux)
	api.NewHandler(notesService).RegisterRoutes(mux, authMiddleware)

	// Rate limiting keys on the session cookie; anonymous traffic passes
	// through and is bounded by the auth endpoints themselves.
	limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	defer limiter.Stop()
	rateLimited := ratelimit.RateLimitMiddleware(limiter, func(r *http.Request) string {
		sessionID, _ := auth.GetFromRequest(r)
		return sessionID
	})

	handler := obs.RequestContextMiddleware(
		obs.AccessLogMiddleware("http", rateLimited(mux)))

	// Periodic session cleanup
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := sessionService.Cleanup(context.Background())
				if err != nil {
					logger.Warn("session_cleanup_failed", "err", err)
				} else if n > 0 {
					logger.Info("session_cleanup", "deleted", n)
				}
			}
		}
	}()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "err", err)
	}
	logger.Info("shutdown_complete")
}
