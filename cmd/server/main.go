package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/planora/planora/auth"
	"github.com/planora/planora/auth/provider/jwks"
	"github.com/planora/planora/config"
	"github.com/planora/planora/middleware/tokenauth"
	"github.com/planora/planora/plans"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		// Booting without signing secrets would issue unverifiable tokens.
		log.Fatalf("invalid config: %v", err)
	}

	if cfg.Server.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	authLog := &logAdapter{log: log.WithField("component", "auth")}

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := ensureSchema(context.Background(), db); err != nil {
		log.Fatalf("failed to prepare schema: %v", err)
	}

	auth.PasswordHashCost = cfg.GetPasswordHashCost()

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		log.Fatalf("repository wiring error: %v", err)
	}

	issuer, err := auth.NewIssuer(cfg, auth.WithIssuerLogger(authLog))
	if err != nil {
		log.Fatalf("failed to build token issuer: %v", err)
	}

	accessValidator, err := buildTokenValidator(cfg, issuer)
	if err != nil {
		log.Fatalf("failed to build token validator: %v", err)
	}

	provider := auth.NewUserProvider(repo.Users()).WithLogger(authLog)

	auther := auth.NewAuthenticator(provider, issuer, repo).
		WithLogger(authLog).
		WithActivitySink(activityLogger(log))

	app := fiber.New(fiber.Config{
		AppName:      "planora",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	protected := tokenauth.New(tokenauth.Config{
		Validator:  tokenValidator(accessValidator),
		ContextKey: cfg.GetContextKey(),
		AuthScheme: cfg.GetAuthScheme(),
	})

	auth.RegisterAuthRoutes(app,
		auth.WithControllerAuther(auther),
		auth.WithControllerValidator(accessValidator),
		auth.WithControllerLimiter(auth.NewRateLimiter(cfg.GetRateLimitBudget(), cfg.GetRateLimitWindow())),
		auth.WithControllerLogger(authLog),
		auth.WithControllerDebug(cfg.Server.Debug),
		auth.WithControllerContextKey(cfg.GetContextKey()),
		auth.WithControllerProtected(protected),
	)

	api := app.Group("/api", protected)
	plans.RegisterPlanRoutes(api,
		plans.WithPlansRepo(plans.NewRepository(db)),
		plans.WithPlansLogger(authLog),
		plans.WithPlansContextKey(cfg.GetContextKey()),
	)

	go func() {
		if err := app.Listen(cfg.Server.Addr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Infof("listening on %s", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}

func openDB(path string) (*bun.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func ensureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*auth.User)(nil),
		(*auth.Session)(nil),
		(*plans.Plan)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

// buildTokenValidator picks the access token backend: the local issuer by
// default, or the JWKS provider when JWK Set URLs are configured.
func buildTokenValidator(cfg config.Config, issuer *auth.Issuer) (auth.TokenValidator, error) {
	if len(cfg.Auth.JWKSURLs) > 0 {
		return jwks.NewTokenValidator(jwks.Config{
			JWKSetURLs: cfg.Auth.JWKSURLs,
			Issuer:     cfg.Auth.Issuer,
		})
	}
	return issuer, nil
}

// tokenValidator adapts the chosen backend to the middleware's local
// interface.
func tokenValidator(validator auth.TokenValidator) tokenauth.TokenValidator {
	return validatorFunc(func(tokenString string) (tokenauth.AuthClaims, error) {
		claims, err := validator.Validate(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

type validatorFunc func(tokenString string) (tokenauth.AuthClaims, error)

func (f validatorFunc) Validate(tokenString string) (tokenauth.AuthClaims, error) {
	return f(tokenString)
}

type logAdapter struct {
	log *logrus.Entry
}

func (l *logAdapter) Debug(format string, args ...any) { l.log.Debugf(format, args...) }
func (l *logAdapter) Info(format string, args ...any)  { l.log.Infof(format, args...) }
func (l *logAdapter) Warn(format string, args ...any)  { l.log.Warnf(format, args...) }
func (l *logAdapter) Error(format string, args ...any) { l.log.Errorf(format, args...) }

func activityLogger(log *logrus.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		log.WithFields(logrus.Fields{
			"event":   event.EventType,
			"user_id": event.UserID,
		}).Info("auth activity")
		return nil
	})
}
