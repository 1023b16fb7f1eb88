package main

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/bookbound/library/internal/api/handler"
	"github.com/bookbound/library/internal/core/ports"
	"github.com/bookbound/library/internal/core/service"
	"github.com/bookbound/library/internal/infrastructure/auth"
	"github.com/bookbound/library/internal/infrastructure/catalog"
	"github.com/bookbound/library/internal/infrastructure/config"
	"github.com/bookbound/library/internal/infrastructure/db/mongo"
	"github.com/bookbound/library/internal/infrastructure/db/postgres"
	"github.com/bookbound/library/internal/infrastructure/db/redis"
	"github.com/bookbound/library/internal/infrastructure/queue"
	"github.com/bookbound/library/pkg/logger"
)

// app holds the connections and services shared by the commands.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	db    *postgres.DB
	store *postgres.Store
	redis *goredis.Client
	mongo *mongodriver.Client
	audit ports.AuditLog
	queue *queue.RedisQueue

	hasher *auth.Bcrypt
	tokens *auth.JWT

	authSvc       *service.AuthService
	userSvc       *service.UserService
	cardSvc       *service.CardService
	loanSvc       *service.LoanService
	bookSvc       *service.BookService
	authorSvc     *service.AuthorService
	enrichmentSvc *service.EnrichmentService
}

func loadConfig(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), App: "library"})
	return cfg, log, nil
}

// openDB connects to Postgres only. Used by commands that need nothing else.
func openDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*postgres.DB, error) {
	return postgres.NewDB(ctx, postgres.Config{
		URL:      cfg.Postgres.URL,
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: cfg.Postgres.MinConns,
	}, log)
}

// newApp opens every dependency and builds the services.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if a.db, err = openDB(ctx, cfg, log); err != nil {
		return nil, err
	}
	a.store = postgres.NewStore(a.db)

	a.redis, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = queue.NewRedisQueue(a.redis)

	if cfg.Mongo.URI != "" {
		client, repo, err := mongo.OpenAudit(ctx, mongo.Config{
			URI:       cfg.Mongo.URI,
			Database:  cfg.Mongo.Database,
			Retention: cfg.Mongo.AuditRetention,
		})
		if repo == nil {
			a.Close()
			return nil, err
		}
		if err != nil {
			log.Warn().Err(err).Msg("audit store started without its indexes")
		}
		a.mongo = client
		a.audit = repo
	} else {
		log.Info().Msg("MONGO_URI not set, audit trail disabled")
	}

	if a.hasher, err = auth.NewBcrypt(cfg.BcryptCost); err != nil {
		a.Close()
		return nil, err
	}
	a.tokens = auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)

	books := catalog.NewGoogleBooks(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.Timeout,
	}, log)
	lookup := redis.NewCatalogCache(books, a.redis, cfg.Catalog.CacheTTL, log)

	a.authSvc = service.NewAuthService(a.store, a.hasher, a.tokens, a.audit, log)
	a.userSvc = service.NewUserService(a.store, a.hasher, a.audit, log)
	a.cardSvc = service.NewCardService(a.store, a.audit, log)
	a.loanSvc = service.NewLoanService(a.store, a.audit, cfg.LoanPeriod, log)
	a.bookSvc = service.NewBookService(a.store, log)
	a.authorSvc = service.NewAuthorService(a.store, log)
	a.enrichmentSvc = service.NewEnrichmentService(a.store, lookup, a.queue, cfg.Queue.ImportWaitTimeout, log)

	return a, nil
}

func (a *app) healthChecks() map[string]handler.PingFunc {
	checks := map[string]handler.PingFunc{
		"postgres": a.db.Ping,
		"redis":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
	}
	if a.mongo != nil {
		checks["mongodb"] = func(ctx context.Context) error { return a.mongo.Ping(ctx, nil) }
	}
	return checks
}

func (a *app) newDispatcher() *queue.Dispatcher {
	return queue.NewDispatcher(a.cfg.Queue.Workers, a.queue, a.enrichmentSvc, a.log)
}

// Close releases every open connection. Safe on a partially built app.
func (a *app) Close() {
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
