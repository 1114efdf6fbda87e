// Package app provides the dependency injection container assembling the
// field encryption subsystem.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/credfolio/fieldvault/internal/config"
	cryptoHTTP "github.com/credfolio/fieldvault/internal/crypto/http"
	cryptoRepository "github.com/credfolio/fieldvault/internal/crypto/repository"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
	"github.com/credfolio/fieldvault/internal/database"
	"github.com/credfolio/fieldvault/internal/fieldenc"
	"github.com/credfolio/fieldvault/internal/http"
	"github.com/credfolio/fieldvault/internal/interceptor"
	"github.com/credfolio/fieldvault/internal/metrics"
	"github.com/credfolio/fieldvault/internal/registry"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Repositories
	keyRepo   cryptoUseCase.KeyRepository
	auditRepo cryptoUseCase.AuditLogRepository

	// Crypto core
	fieldRegistry  *registry.Registry
	aeadManager    cryptoService.AEADManager
	encryptor      *cryptoService.EncryptionService
	rowStore       cryptoService.RowStore
	reencryptor    *cryptoService.Reencryptor
	fieldEncryptor *fieldenc.FieldEncryptor
	interceptor    *interceptor.Interceptor

	// Use Cases
	keyUseCase cryptoUseCase.KeyUseCase

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	keyRepoInit         sync.Once
	auditRepoInit       sync.Once
	registryInit        sync.Once
	aeadManagerInit     sync.Once
	encryptorInit       sync.Once
	rowStoreInit        sync.Once
	reencryptorInit     sync.Once
	fieldEncryptorInit  sync.Once
	interceptorInit     sync.Once
	keyUseCaseInit      sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// KeyRepository returns the encryption key repository for the configured
// database driver.
func (c *Container) KeyRepository() (cryptoUseCase.KeyRepository, error) {
	c.keyRepoInit.Do(func() {
		repo, err := c.initKeyRepository()
		if err != nil {
			c.initErrors["keyRepo"] = err
			return
		}
		c.keyRepo = repo
	})
	if storedErr, exists := c.initErrors["keyRepo"]; exists {
		return nil, storedErr
	}
	return c.keyRepo, nil
}

// AuditLogRepository returns the key audit log repository for the configured
// database driver.
func (c *Container) AuditLogRepository() (cryptoUseCase.AuditLogRepository, error) {
	c.auditRepoInit.Do(func() {
		repo, err := c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
			return
		}
		c.auditRepo = repo
	})
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// Registry returns the compiled field registry.
func (c *Container) Registry() *registry.Registry {
	c.registryInit.Do(func() {
		c.fieldRegistry = registry.Default()
	})
	return c.fieldRegistry
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// Encryptor returns the encryption core. Derives root keys from the master
// secret on first access; with no secret configured the core runs in degraded
// pass-through mode.
func (c *Container) Encryptor() (*cryptoService.EncryptionService, error) {
	c.encryptorInit.Do(func() {
		svc, err := cryptoService.NewEncryptionService(
			c.config.EncryptionMasterSecret,
			c.config.EncryptionKDFSalt,
			c.AEADManager(),
			c.Logger(),
		)
		if err != nil {
			c.initErrors["encryptor"] = fmt.Errorf("failed to create encryption service: %w", err)
			return
		}
		c.encryptor = svc
	})
	if storedErr, exists := c.initErrors["encryptor"]; exists {
		return nil, storedErr
	}
	return c.encryptor, nil
}

// RowStore returns the SQL row store used by bulk encryption and
// re-encryption jobs.
func (c *Container) RowStore() (cryptoService.RowStore, error) {
	c.rowStoreInit.Do(func() {
		store, err := c.initRowStore()
		if err != nil {
			c.initErrors["rowStore"] = err
			return
		}
		c.rowStore = store
	})
	if storedErr, exists := c.initErrors["rowStore"]; exists {
		return nil, storedErr
	}
	return c.rowStore, nil
}

// Reencryptor returns the background re-encryption job runner.
func (c *Container) Reencryptor() (*cryptoService.Reencryptor, error) {
	c.reencryptorInit.Do(func() {
		encryptor, err := c.Encryptor()
		if err != nil {
			c.initErrors["reencryptor"] = fmt.Errorf("failed to get encryptor for reencryptor: %w", err)
			return
		}
		store, err := c.RowStore()
		if err != nil {
			c.initErrors["reencryptor"] = fmt.Errorf("failed to get row store for reencryptor: %w", err)
			return
		}
		c.reencryptor = cryptoService.NewReencryptor(
			c.Registry(),
			encryptor,
			store,
			c.config.ReencryptBatchSize,
			c.config.ReencryptWorkers,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["reencryptor"]; exists {
		return nil, storedErr
	}
	return c.reencryptor, nil
}

// FieldEncryptor returns the registry-driven record encryptor.
func (c *Container) FieldEncryptor() (*fieldenc.FieldEncryptor, error) {
	c.fieldEncryptorInit.Do(func() {
		encryptor, err := c.Encryptor()
		if err != nil {
			c.initErrors["fieldEncryptor"] = fmt.Errorf("failed to get encryptor for field encryptor: %w", err)
			return
		}
		c.fieldEncryptor = fieldenc.NewFieldEncryptor(c.Registry(), encryptor)
	})
	if storedErr, exists := c.initErrors["fieldEncryptor"]; exists {
		return nil, storedErr
	}
	return c.fieldEncryptor, nil
}

// Interceptor returns the persistence interceptor.
func (c *Container) Interceptor() (*interceptor.Interceptor, error) {
	c.interceptorInit.Do(func() {
		ic, err := c.initInterceptor()
		if err != nil {
			c.initErrors["interceptor"] = err
			return
		}
		c.interceptor = ic
	})
	if storedErr, exists := c.initErrors["interceptor"]; exists {
		return nil, storedErr
	}
	return c.interceptor, nil
}

// KeyUseCase returns the key management use case, wrapped with metrics when
// metrics are enabled.
func (c *Container) KeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	c.keyUseCaseInit.Do(func() {
		useCase, err := c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
			return
		}
		c.keyUseCase = useCase
	})
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// MetricsProvider returns the metrics provider. Returns nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. Returns a no-op
// implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the admin API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server. Returns nil when
// metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// LoadKeys loads stored encryption keys into the in-memory key chain. Called
// once at startup before the servers accept traffic.
func (c *Container) LoadKeys(ctx context.Context) error {
	encryptor, err := c.Encryptor()
	if err != nil {
		return err
	}
	if !encryptor.Enabled() {
		return nil
	}

	useCase, err := c.KeyUseCase()
	if err != nil {
		return err
	}
	return useCase.LoadKeyChain(ctx)
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.encryptor != nil {
		c.encryptor.Close()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initKeyRepository selects the key repository based on the database driver.
func (c *Container) initKeyRepository() (cryptoUseCase.KeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return cryptoRepository.NewMySQLKeyRepository(db), nil
	case "postgres":
		return cryptoRepository.NewPostgreSQLKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditLogRepository selects the audit log repository based on the
// database driver.
func (c *Container) initAuditLogRepository() (cryptoUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return cryptoRepository.NewMySQLAuditLogRepository(db), nil
	case "postgres":
		return cryptoRepository.NewPostgreSQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRowStore creates the SQL row store for the configured driver.
func (c *Container) initRowStore() (cryptoService.RowStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for row store: %w", err)
	}

	var dialect interceptor.Dialect
	switch c.config.DBDriver {
	case "mysql":
		dialect = interceptor.DialectMySQL
	case "postgres":
		dialect = interceptor.DialectPostgreSQL
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	return interceptor.NewSQLRowStore(db, dialect, "id", interceptor.ScopeField), nil
}

// initInterceptor creates the persistence interceptor with its dependencies.
func (c *Container) initInterceptor() (*interceptor.Interceptor, error) {
	fields, err := c.FieldEncryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get field encryptor for interceptor: %w", err)
	}
	encryptor, err := c.Encryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryptor for interceptor: %w", err)
	}
	store, err := c.RowStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get row store for interceptor: %w", err)
	}

	return interceptor.New(
		c.Registry(),
		fields,
		encryptor,
		store,
		c.config.ReencryptBatchSize,
		c.Logger(),
	), nil
}

// initKeyUseCase creates the key management use case with all its dependencies.
func (c *Container) initKeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}
	keyRepo, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key use case: %w", err)
	}
	auditRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for key use case: %w", err)
	}
	encryptor, err := c.Encryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryptor for key use case: %w", err)
	}
	reencryptor, err := c.Reencryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get reencryptor for key use case: %w", err)
	}

	useCase := cryptoUseCase.NewKeyUseCase(
		txManager,
		keyRepo,
		auditRepo,
		encryptor,
		c.AEADManager(),
		reencryptor,
		time.Duration(c.config.KeyExpiryDays)*24*time.Hour,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}
		useCase = cryptoUseCase.NewKeyUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

// initHTTPServer creates the admin API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for http server: %w", err)
	}
	encryptor, err := c.Encryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryptor for http server: %w", err)
	}
	ic, err := c.Interceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get interceptor for http server: %w", err)
	}

	keyHandler := cryptoHTTP.NewKeyHandler(keyUseCase, encryptor, logger)
	tableHandler := cryptoHTTP.NewTableHandler(ic, logger)

	var metricsMiddleware gin.HandlerFunc
	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		if provider != nil {
			metricsMiddleware = metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace)
		}
	}

	server := http.NewServer(
		http.ServerConfig{
			Host:                    c.config.ServerHost,
			Port:                    c.config.ServerPort,
			GinMode:                 c.config.GetGinMode(),
			CORSEnabled:             c.config.CORSEnabled,
			CORSAllowOrigins:        c.config.CORSAllowOrigins,
			RateLimitEnabled:        c.config.RateLimitEnabled,
			RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
			RateLimitBurst:          c.config.RateLimitBurst,
		},
		keyHandler,
		tableHandler,
		metricsMiddleware,
		logger,
	)

	return server, nil
}
