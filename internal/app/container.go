package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/config"
	httpx "github.com/researchguru/authsvc/internal/http"
	"github.com/researchguru/authsvc/internal/http/handlers"
	"github.com/researchguru/authsvc/internal/http/middleware"
	"github.com/researchguru/authsvc/internal/infrastructure/audit"
	"github.com/researchguru/authsvc/internal/infrastructure/auth"
	"github.com/researchguru/authsvc/internal/infrastructure/database"
	"github.com/researchguru/authsvc/internal/infrastructure/notifications"
	"github.com/researchguru/authsvc/internal/infrastructure/repositories"
	"github.com/researchguru/authsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Registry    *prometheus.Registry

	// Repositories
	AccountRepo domain.AccountRepository

	// Services
	PasswordSvc domain.PasswordService
	TokenSvc    domain.TokenService
	OTPSvc      domain.OTPService
	Sessions    domain.SessionRegistry
	AuditLogger domain.AuditLogger
	Notifier    *services.Notifier
	AuthSvc     domain.AuthService
	PolicySvc   *services.PolicyServiceImpl

	Router *gin.Engine
}

// NewContainer opens the database and Redis connections and wires every
// component on top of them
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN, database.PoolConfig{})
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, err
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx); err != nil {
		closeDB(db)
		_ = rdb.Close()
		return nil, err
	}

	c, err := newContainer(cfg, log, db, rdb.Client, nil)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// newContainer wires components on already opened (and migrated) stores. A
// nil gateway builds the SMTP and Twilio one from cfg.
func newContainer(cfg *config.Config, log *zap.Logger, db *gorm.DB, rdb *redis.Client, gateway domain.NotificationGateway) (*Container, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		RedisClient: rdb,
		Registry:    prometheus.NewRegistry(),
	}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := c.initServices(gateway); err != nil {
		return c, err
	}
	if err := c.initPolicies(); err != nil {
		return c, err
	}
	if err := c.initRouter(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Container) initServices(gateway domain.NotificationGateway) error {
	cfg := c.Config

	tokens, err := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}
	c.TokenSvc = tokens
	c.PasswordSvc = auth.NewPasswordService(cfg.BcryptCost)
	c.AccountRepo = repositories.NewAccountRepository(c.DB)
	c.Sessions = services.NewSessionRegistry(c.AccountRepo, c.TokenSvc)
	c.OTPSvc = services.NewOTPService(services.OTPConfig{
		VerifyTTL:    cfg.OTPVerifyTTL,
		ResetTTL:     cfg.OTPResetTTL,
		ResendWindow: cfg.OTPResendWindow,
	})

	auditLogger, err := audit.NewZapAuditLogger(c.Logger, c.Registry)
	if err != nil {
		return fmt.Errorf("audit logger: %w", err)
	}
	c.AuditLogger = auditLogger

	if gateway == nil {
		gateway = c.newGateway()
	}
	c.Notifier = services.NewNotifier(gateway, c.AuditLogger, c.Logger, services.NotifierConfig{
		Timeout:            cfg.NotificationTimeout,
		DefaultCountryCode: cfg.DefaultCountryCode,
	})

	c.AuthSvc = services.NewAuthService(
		c.AccountRepo,
		c.Sessions,
		c.PasswordSvc,
		c.TokenSvc,
		c.OTPSvc,
		c.Notifier,
		c.AuditLogger,
		c.Logger,
		services.AuthConfig{RevokeSessionOnReset: cfg.RevokeSessionOnReset},
	)
	return nil
}

func (c *Container) newGateway() *notifications.Gateway {
	cfg := c.Config
	mailer := notifications.NewSMTPMailer(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, c.Logger)
	whatsapp := notifications.NewTwilioService(notifications.TwilioConfig{
		AccountSID:   cfg.TwilioSID,
		AuthToken:    cfg.TwilioToken,
		WhatsAppFrom: cfg.TwilioWhatsAppFrom,
	}, c.Logger)
	return notifications.NewGateway(mailer, whatsapp, notifications.GatewayConfig{
		VerifyTTL: cfg.OTPVerifyTTL,
		ResetTTL:  cfg.OTPResetTTL,
	})
}

func (c *Container) initPolicies() error {
	cas, err := auth.NewCasbinService(c.DB, c.Config.CasbinModelPath)
	if err != nil {
		return err
	}
	c.PolicySvc = services.NewPolicyService(cas.E)

	seeded, err := c.PolicySvc.SeedDefaultPolicies()
	if err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}
	if seeded > 0 {
		c.Logger.Info("casbin: seeded default policies", zap.Int("count", seeded))
	}
	return nil
}

func (c *Container) initRouter() error {
	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: c.Registry})
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}

	cookies := handlers.CookieConfig{
		AccessTTL:  c.Config.AccessTTL,
		RefreshTTL: c.Config.RefreshTTL,
		SameSite:   http.SameSiteLaxMode,
	}
	if c.Config.IsProduction() {
		cookies.Secure = true
		cookies.SameSite = http.SameSiteNoneMode
	}

	deps := httpx.RouterDeps{
		Logger:         c.Logger,
		CORSOrigins:    c.Config.CORSOrigins,
		Auth:           handlers.NewAuthHandlers(c.AuthSvc, cookies),
		Users:          handlers.NewUserHandlers(c.AuthSvc),
		Policies:       handlers.NewPolicyHandlers(c.PolicySvc),
		AuthMW:         middleware.NewAuthMW(c.TokenSvc),
		CasbinMW:       middleware.NewCasbinMW(c.PolicySvc, c.Logger),
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}),
		Ready:          c.ready,
	}
	if c.RedisClient != nil && c.Config.AuthRateLimit > 0 {
		store := repositories.NewRateLimitRepository(c.RedisClient, c.Config.AuthRateWindow)
		deps.RateLimiter = middleware.NewRateLimiter(store, c.Logger)
		deps.AuthRateLimit = middleware.RateLimitRule{
			Name:       "auth",
			Limit:      c.Config.AuthRateLimit,
			Window:     c.Config.AuthRateWindow,
			Identifier: middleware.ClientIPIdentifier(),
		}
	}

	c.Router = httpx.BuildRouter(deps)
	return nil
}

func (c *Container) ready(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	return nil
}

// Close waits for in-flight notifications, then closes all connections
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Notifier != nil {
		c.Notifier.Wait()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
