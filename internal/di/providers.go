package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/brforum/forum-backend/internal/app"
	"github.com/brforum/forum-backend/internal/config"
	"github.com/brforum/forum-backend/internal/database"
	"github.com/brforum/forum-backend/internal/health"
	"github.com/brforum/forum-backend/internal/http/handler"
	"github.com/brforum/forum-backend/internal/http/middleware"
	"github.com/brforum/forum-backend/internal/http/router"
	"github.com/brforum/forum-backend/internal/observability"
	"github.com/brforum/forum-backend/internal/repository"
	"github.com/brforum/forum-backend/internal/security"
	"github.com/brforum/forum-backend/internal/service"
	"github.com/brforum/forum-backend/internal/session"
	"github.com/brforum/forum-backend/internal/storage"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	providePhotoStore,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewPostRepository,
)

var SecuritySet = wire.NewSet(
	provideSessionCodec,
	provideCookieManager,
	provideSessionStore,
	provideSessionManager,
)

var ServiceSet = wire.NewSet(
	service.NewAccountService,
	service.NewPostService,
	provideLoginLimiter,
)

var HTTPSet = wire.NewSet(
	handler.NewAccountHandler,
	handler.NewPostHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

// MigrationRunner backs the forumctl migrate command.
type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Config() *config.Config { return m.cfg }
func (m *MigrationRunner) DB() *gorm.DB           { return m.db }

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	report, err := database.Seed(m.db, m.cfg.BootstrapAdminLogin, m.cfg.BootstrapAdminName, m.cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if report.CreatedAdmin {
		fmt.Println("bootstrap admin created")
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.Seed(db, cfg.BootstrapAdminLogin, cfg.BootstrapAdminName, cfg.BootstrapAdminPassword); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func providePhotoStore(cfg *config.Config) (storage.PhotoStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendMinio:
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return storage.NewDiskStore(cfg.UploadDir)
	}
}

const sessionTokenIssuer = "forum-backend"

func provideSessionCodec(cfg *config.Config) *security.SessionCodec {
	return security.NewSessionCodec(cfg.SessionSecret, sessionTokenIssuer, cfg.SessionTTL)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideSessionStore(cfg *config.Config, client redis.UniversalClient) *session.Store {
	return session.NewStore(client, cfg.SessionTTL)
}

func provideSessionManager(cfg *config.Config, codec *security.SessionCodec, cookies *security.CookieManager, store *session.Store, logger *slog.Logger) *middleware.SessionManager {
	return middleware.NewSessionManager(codec, cookies, store, cfg.SessionTTL, logger)
}

func provideLoginLimiter(cfg *config.Config, client redis.UniversalClient, logger *slog.Logger) service.LoginLimiter {
	return service.NewRedisLoginLimiter(client, cfg.LoginRateLimitPerMin, logger)
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewRedisChecker(client),
	}
	if cfg.StorageBackend == config.StorageBackendDisk {
		checkers = append(checkers, health.NewPhotoDirChecker(cfg.UploadDir))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, checkers...)
}

func provideRouterDependencies(
	accountHandler *handler.AccountHandler,
	postHandler *handler.PostHandler,
	sessionManager *middleware.SessionManager,
	readiness *health.ProbeRunner,
	store storage.PhotoStore,
	cfg *config.Config,
) router.Dependencies {
	imageDir := ""
	if disk, ok := store.(*storage.DiskStore); ok {
		imageDir = disk.Dir()
	}
	return router.Dependencies{
		AccountHandler: accountHandler,
		PostHandler:    postHandler,
		Session:        sessionManager,
		Readiness:      readiness,
		ImageDir:       imageDir,
		EnableOTelHTTP: cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
