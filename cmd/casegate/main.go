// Command casegate serves court-process lookups behind an Azure AD bearer
// token gate.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/oauth2"

	authgin "github.com/juslabs/casegate/adapters/gin"
	"github.com/juslabs/casegate/adapters/gin/handlers"
	"github.com/juslabs/casegate/audit"
	"github.com/juslabs/casegate/azuread"
	"github.com/juslabs/casegate/cases"
	memorycases "github.com/juslabs/casegate/cases/memory"
	pgcases "github.com/juslabs/casegate/cases/postgres"
	rediscases "github.com/juslabs/casegate/cases/rediscache"
	"github.com/juslabs/casegate/config"
	"github.com/juslabs/casegate/docstore"
	migrations "github.com/juslabs/casegate/migrations/postgres"
	"github.com/juslabs/casegate/ratelimit"
	memorylimiter "github.com/juslabs/casegate/ratelimit/memory"
	redislimiter "github.com/juslabs/casegate/ratelimit/redis"
	"github.com/juslabs/casegate/verifier"
)

func main() {
	if lvl, err := log.ParseLevel(envOr("CASEGATE_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jwksURL, oauthCfg, issuerURL := resolveProvider(ctx, cfg)

	keys := verifier.NewKeySet(jwksURL, cfg.JWKSCacheTTL)
	vcfg := verifier.Config{
		Audience:   cfg.Audience,
		Algorithms: cfg.Algorithms,
		Skew:       cfg.Skew,
	}
	if cfg.EnforceIssuer {
		vcfg.Issuer = issuerURL
	}
	v, err := verifier.New(keys, vcfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build verifier")
	}

	// Proactive key refreshes keep rotation refetches off the request path.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.JWKSRefreshSchedule, func() {
		rctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := keys.ForceRefresh(rctx); err != nil {
			log.WithError(err).Warn("scheduled JWKS refresh failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("invalid JWKS refresh schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	var (
		store   cases.Store
		sink    audit.Logger = audit.Noop{}
		limiter ratelimit.Limiter
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()
		runMigrations(ctx, pool)
		store = pgcases.NewStore(pool, "cases")

		riverClient, err := startAudit(ctx, pool)
		if err != nil {
			log.WithError(err).Fatal("failed to start audit queue")
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = riverClient.Stop(sctx)
		}()
		sink = audit.NewRiverLogger(riverClient)
	} else {
		log.Warn("no database configured; using in-memory case store and discarding audit events")
		store = memorycases.New(map[string]string{
			"20240016435": "0014356-84.2024.8.16.6000",
		})
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = redislimiter.New(rdb, nil)
		store = rediscases.New(store, rdb, "", 10*time.Minute)
	} else {
		limiter = memorylimiter.New(nil)
	}

	r := buildRouter(v, sink, limiter, store, oauthCfg, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

// resolveProvider derives the JWKS URL and OAuth2 endpoints, either from the
// Azure authority shape or from OIDC well-known discovery.
func resolveProvider(ctx context.Context, cfg config.Config) (jwksURL string, oauthCfg *oauth2.Config, issuerURL string) {
	if cfg.IssuerURL != "" {
		dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		doc, err := azuread.Discover(dctx, cfg.IssuerURL)
		if err != nil {
			log.WithError(err).Fatal("issuer discovery failed")
		}
		jwksURL = doc.JWKSURI
		issuerURL = cfg.IssuerURL
		oauthCfg = &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  doc.AuthorizationEndpoint,
				TokenURL: doc.TokenEndpoint,
			},
		}
	} else {
		authority, err := azuread.NewAuthority(cfg.TenantID)
		if err != nil {
			log.WithError(err).Fatal("invalid tenant")
		}
		jwksURL = authority.JWKSURL()
		issuerURL = authority.Issuer()
		oauthCfg = authority.OAuthConfig(cfg.ClientID, cfg.RedirectURL, cfg.Scopes)
	}
	if cfg.JWKSURL != "" {
		jwksURL = cfg.JWKSURL
	}
	return jwksURL, oauthCfg, issuerURL
}

func buildRouter(v *verifier.Verifier, sink audit.Logger, limiter ratelimit.Limiter, store cases.Store, oauthCfg *oauth2.Config, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), authgin.RequestID())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/auth/config", handlers.HandleAuthConfigGET(oauthCfg, cfg.Audience))

	auth := authgin.AuthRequired(v, sink)
	r.GET("/getprocessnumber", auth,
		authgin.RateLimit(limiter, ratelimit.BucketProcessNumber),
		handlers.HandleProcessNumberGET(store))
	r.GET("/getprocessdetails", auth,
		authgin.RateLimit(limiter, ratelimit.BucketProcessDetails),
		handlers.HandleProcessDetailsGET(docstore.NewPDFReader(cfg.ProcessPDFPath)))
	return r
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) {
	sqldb := stdlib.OpenDBFromPool(pool)
	db := bun.NewDB(sqldb, pgdialect.New())
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		log.WithError(err).Fatal("failed to init migrations")
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	if !group.IsZero() {
		log.WithField("group", group.String()).Info("applied migrations")
	}
}

func startAudit(ctx context.Context, pool *pgxpool.Pool) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &audit.EventWorker{DB: pool})
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 4}},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
