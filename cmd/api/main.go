package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/application/account"
	"github.com/campusxchange/swapkr/internal/application/broadcast"
	"github.com/campusxchange/swapkr/internal/application/listing"
	"github.com/campusxchange/swapkr/internal/application/moderation"
	"github.com/campusxchange/swapkr/internal/application/notification"
	"github.com/campusxchange/swapkr/internal/application/otp"
	requestapp "github.com/campusxchange/swapkr/internal/application/request"
	"github.com/campusxchange/swapkr/internal/config"
	"github.com/campusxchange/swapkr/internal/infrastructure/dynamo"
	jwtinfra "github.com/campusxchange/swapkr/internal/infrastructure/jwt"
	"github.com/campusxchange/swapkr/internal/infrastructure/postgres"
	s3infra "github.com/campusxchange/swapkr/internal/infrastructure/s3"
	"github.com/campusxchange/swapkr/internal/infrastructure/smtp"
	"github.com/campusxchange/swapkr/internal/infrastructure/sns"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	transporthttp "github.com/campusxchange/swapkr/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)
	if envErr != nil {
		zl.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		zl.Fatal("ensure schema", zap.Error(err))
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("dynamodb client", zap.Error(err))
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("s3 client", zap.Error(err))
	}
	images := s3infra.NewStore(s3Client, cfg.S3BucketName)

	mailer := smtp.NewMailer(smtp.Settings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if !mailer.Configured() {
		zl.Warn("SMTP credentials missing, emails will not be sent; one-time codes are logged instead")
	}

	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if sender, err := sns.NewSender(ctx, cfg.SNSRegion); err == nil {
			smsSender = sender
		} else {
			zl.Warn("SNS sender not available", zap.Error(err))
		}
	}

	tokens, err := jwtinfra.NewProvider(jwtSecret(cfg, zl), cfg.JWTExpiry)
	if err != nil {
		zl.Fatal("jwt provider", zap.Error(err))
	}

	identities := postgres.NewIdentityRepo(db)
	listings := postgres.NewListingRepo(db)
	requests := postgres.NewRequestRepo(db)
	codes := dynamo.NewCodeRepo(dynamoClient, cfg.DynamoTables.OneTimeCodes)
	inbox := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)

	policy := access.NewPolicy(cfg.AdminEmails)
	if len(cfg.AdminEmails) == 0 {
		zl.Warn("ADMIN_EMAILS is empty, nobody can moderate")
	}

	issuer := otp.NewIssuer(otp.Deps{
		Store:       codes,
		Mailer:      mailer,
		SMS:         smsSender,
		TTL:         cfg.OTPTTL,
		SendTimeout: cfg.MailSendTimeout,
		Logger:      zl.Named("otp"),
	})
	notifier := broadcast.NewNotifier(broadcast.Deps{
		Mailer:      mailer,
		Inbox:       inbox,
		FrontendURL: cfg.FrontendURL,
		SendTimeout: cfg.MailSendTimeout,
		Concurrency: cfg.BroadcastConcurrency,
		Logger:      zl.Named("broadcast"),
	})
	moderationSvc := moderation.NewService(moderation.Deps{
		Policy:     policy,
		Listings:   listings,
		Requests:   requests,
		Identities: identities,
		Images:     images,
		Notifier:   notifier,
		Logger:     zl.Named("moderation"),
	})

	deps := &transporthttp.Deps{
		Verifier: access.NewVerifier(tokens),
		Policy:   policy,
		Accounts: account.NewService(account.Deps{
			Identities:    identities,
			Codes:         issuer,
			Tokens:        tokens,
			Policy:        policy,
			AllowedDomain: cfg.AllowedEmailDomain,
			Logger:        zl.Named("account"),
		}),
		Listings: listing.NewService(listing.Deps{
			Store:    listings,
			Images:   images,
			Approver: moderationSvc,
			Policy:   policy,
			URLTTL:   cfg.ImageURLTTL,
			Logger:   zl.Named("listing"),
		}),
		Requests:      requestapp.NewService(requests, moderationSvc, policy),
		Notifications: notification.NewService(inbox),
		Moderation:    moderationSvc,
		DB:            db,
		Logger:        zl.Named("http"),
	}

	router, stopRouter := transporthttp.NewRouter(cfg, deps)
	defer stopRouter()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
	// Handlers are done; let in-flight broadcasts and code deliveries finish.
	if err := notifier.Wait(shutdownCtx); err != nil {
		zl.Warn("broadcasts still running at exit", zap.Error(err))
	}
	if err := issuer.Wait(shutdownCtx); err != nil {
		zl.Warn("code deliveries still running at exit", zap.Error(err))
	}
	zl.Info("server stopped")
}

// jwtSecret returns JWT_SECRET. Outside production a missing secret is
// replaced by a random one, which invalidates tokens on every restart.
func jwtSecret(cfg *config.Config, zl *zap.Logger) string {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret
	}
	if cfg.IsProduction() {
		zl.Fatal("JWT_SECRET is required in production")
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		zl.Fatal("generate jwt secret", zap.Error(err))
	}
	zl.Warn("JWT_SECRET not set, using a random per-process secret")
	return hex.EncodeToString(b)
}
