package api

import (
	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/nivixpay/nivix-ledger/internal/api/handler"
	"github.com/nivixpay/nivix-ledger/internal/api/middleware"
	"github.com/nivixpay/nivix-ledger/internal/api/spec"
	"github.com/nivixpay/nivix-ledger/internal/config"
	"github.com/nivixpay/nivix-ledger/internal/idempotency"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/service"
	"github.com/nivixpay/nivix-ledger/internal/token"
)

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	repo      *repository.Repository
	idemStore *idempotency.Store
	redis     redis.Cmdable
	mover     token.Mover
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, repo *repository.Repository, idemStore *idempotency.Store, redisClient redis.Cmdable, mover token.Mover) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		repo:      repo,
		idemStore: idemStore,
		redis:     redisClient,
		mover:     mover,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	store := repository.NewStore(api.db)
	platformSvc := service.NewPlatformService(api.repo)
	transferSvc := service.NewTransferService(store, api.mover)
	offlineSvc := service.NewOfflineService(store, api.repo, api.mover)
	poolSvc := service.NewPoolService(store, api.repo, api.mover)

	poolAuthority := api.cfg.PoolAuthority
	if len(poolAuthority) == 0 {
		// no configured custody key; a throwaway key keeps the mock mover usable
		poolAuthority = solana.NewWallet().PrivateKey
	}

	authHandler := handler.NewAuthHandler(api.repo, api.cfg.BootstrapOwner)
	platformHandler := handler.NewPlatformHandler(platformSvc, api.repo)
	userHandler := handler.NewUserHandler(platformSvc, api.repo)
	walletHandler := handler.NewWalletHandler(platformSvc, api.repo)
	transferHandler := handler.NewTransferHandler(transferSvc)
	offlineHandler := handler.NewOfflineHandler(offlineSvc)
	poolHandler := handler.NewPoolHandler(poolSvc, api.repo, poolAuthority)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Operational surface
	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/login", authHandler.Login)
		r.With(idem).Post("/v1/users", userHandler.Register)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Platform
		r.With(idem).Post("/v1/platforms", platformHandler.Activate)
		r.Get("/v1/platforms/{id}", platformHandler.Get)

		// Users and KYC
		r.Get("/v1/users/{id}", userHandler.Get)
		r.With(idem).Post("/v1/kyc/attestations", userHandler.AttestKyc)
		r.Get("/v1/kyc/{owner}", userHandler.KycStatus)

		// Wallets
		r.With(idem).Post("/v1/wallets", walletHandler.Create)
		r.Get("/v1/wallets/{id}/balance", walletHandler.GetBalance)
		r.Get("/v1/wallets/transactions", walletHandler.Transactions)

		// Transfers
		r.With(idem).Post("/v1/transfers", transferHandler.Process)

		// Offline queue
		r.With(idem).Post("/v1/offline/transactions", offlineHandler.Record)
		r.With(idem).Post("/v1/offline/transactions/{id}/sync", offlineHandler.Sync)
		r.Get("/v1/offline/transactions", offlineHandler.ListUnsynced)

		// Exchange pools
		r.With(idem).Post("/v1/pools", poolHandler.Create)
		r.Get("/v1/pools/{id}", poolHandler.Get)
		r.With(idem).Post("/v1/pools/{id}/swap", poolHandler.Swap)
		r.Put("/v1/pools/{id}/rate", poolHandler.UpdateRate)
	})

	return r
}
