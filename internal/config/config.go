package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for the config file unless CONFIG_PATH is set
const DefaultPath = "config/config.yml"

type AppConfig struct {
	Port            int      `yaml:"port"`
	Env             string   `yaml:"env"`
	GinMode         string   `yaml:"gin_mode"`
	LogLevel        string   `yaml:"log_level"`
	CORSOrigins     []string `yaml:"cors_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
	Issuer        string `yaml:"issuer"`
	AccessTTL     string `yaml:"access_ttl"`
	RefreshTTL    string `yaml:"refresh_ttl"`
}

type OTPConfig struct {
	VerifyTTL    string `yaml:"verify_ttl"`
	ResetTTL     string `yaml:"reset_ttl"`
	ResendWindow string `yaml:"resend_window"`
}

type AuthConfig struct {
	BcryptCost           int  `yaml:"bcrypt_cost"`
	RevokeSessionOnReset bool `yaml:"revoke_session_on_reset"`
}

type RateLimitConfig struct {
	AuthLimit  int    `yaml:"auth_limit"`
	AuthWindow string `yaml:"auth_window"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TwilioConfig struct {
	AccountSID         string `yaml:"account_sid"`
	AuthToken          string `yaml:"auth_token"`
	WhatsAppFrom       string `yaml:"whatsapp_from"`
	DefaultCountryCode string `yaml:"default_country_code"`
}

type NotificationsConfig struct {
	Timeout string `yaml:"timeout"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	OTP           OTPConfig           `yaml:"otp"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Twilio        TwilioConfig        `yaml:"twilio"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Casbin        CasbinConfig        `yaml:"casbin"`
}

type Config struct {
	Port            string
	Env             string
	GinMode         string
	LogLevel        string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTIssuer        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	OTPVerifyTTL    time.Duration
	OTPResetTTL     time.Duration
	OTPResendWindow time.Duration

	BcryptCost           int
	RevokeSessionOnReset bool

	AuthRateLimit  int
	AuthRateWindow time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	TwilioSID          string
	TwilioToken        string
	TwilioWhatsAppFrom string
	DefaultCountryCode string

	NotificationTimeout time.Duration

	CasbinModelPath string
}

// IsProduction reports whether cookies must be cross-site and secure
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Load reads .env (when present), the YAML file at CONFIG_PATH and the
// environment overrides, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(env("CONFIG_PATH", DefaultPath))
}

// LoadFile builds the Config from the YAML file at path plus environment overrides
func LoadFile(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg, err := configFile.toConfig()
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func (f *ConfigFile) toConfig() (*Config, error) {
	cfg := &Config{
		Port:                 strconv.Itoa(f.App.Port),
		Env:                  f.App.Env,
		GinMode:              f.App.GinMode,
		LogLevel:             f.App.LogLevel,
		CORSOrigins:          f.App.CORSOrigins,
		DSN:                  f.Database.DSN,
		RedisAddr:            f.Redis.Addr,
		RedisPassword:        f.Redis.Password,
		RedisDB:              f.Redis.DB,
		JWTAccessSecret:      f.JWT.AccessSecret,
		JWTRefreshSecret:     f.JWT.RefreshSecret,
		JWTIssuer:            f.JWT.Issuer,
		BcryptCost:           f.Auth.BcryptCost,
		RevokeSessionOnReset: f.Auth.RevokeSessionOnReset,
		AuthRateLimit:        f.RateLimit.AuthLimit,
		SMTPHost:             f.SMTP.Host,
		SMTPPort:             f.SMTP.Port,
		SMTPUser:             f.SMTP.Username,
		SMTPPassword:         f.SMTP.Password,
		MailFrom:             f.SMTP.From,
		TwilioSID:            f.Twilio.AccountSID,
		TwilioToken:          f.Twilio.AuthToken,
		TwilioWhatsAppFrom:   f.Twilio.WhatsAppFrom,
		DefaultCountryCode:   f.Twilio.DefaultCountryCode,
		CasbinModelPath:      f.Casbin.ModelPath,
	}

	durations := []struct {
		name  string
		value string
		def   time.Duration
		dst   *time.Duration
	}{
		{"app shutdown timeout", f.App.ShutdownTimeout, 10 * time.Second, &cfg.ShutdownTimeout},
		{"JWT access TTL", f.JWT.AccessTTL, 15 * time.Minute, &cfg.AccessTTL},
		{"JWT refresh TTL", f.JWT.RefreshTTL, 7 * 24 * time.Hour, &cfg.RefreshTTL},
		{"OTP verify TTL", f.OTP.VerifyTTL, 15 * time.Minute, &cfg.OTPVerifyTTL},
		{"OTP reset TTL", f.OTP.ResetTTL, 30 * time.Minute, &cfg.OTPResetTTL},
		{"OTP resend window", f.OTP.ResendWindow, 60 * time.Second, &cfg.OTPResendWindow},
		{"auth rate limit window", f.RateLimit.AuthWindow, 15 * time.Minute, &cfg.AuthRateWindow},
		{"notification timeout", f.Notifications.Timeout, 30 * time.Second, &cfg.NotificationTimeout},
	}
	for _, d := range durations {
		*d.dst = d.def
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if f.App.Port == 0 {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.AuthRateLimit == 0 {
		cfg.AuthRateLimit = 120
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	return cfg, nil
}

// applyEnv overrides file values with the environment, which is where
// secrets are expected to live
func (c *Config) applyEnv() {
	c.Port = env("PORT", c.Port)
	c.Env = env("APP_ENV", c.Env)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	if origins := os.Getenv("FRONTEND_URL"); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}

	c.DSN = env("DATABASE_DSN", c.DSN)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = env("REDIS_PASSWORD", c.RedisPassword)

	c.JWTAccessSecret = env("JWT_ACCESS_SECRET", c.JWTAccessSecret)
	c.JWTRefreshSecret = env("JWT_REFRESH_SECRET", c.JWTRefreshSecret)

	c.SMTPHost = env("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = envInt("SMTP_PORT", c.SMTPPort)
	c.SMTPUser = env("SMTP_USER", c.SMTPUser)
	c.SMTPPassword = env("SMTP_PASSWORD", c.SMTPPassword)
	c.MailFrom = env("MAIL_FROM", c.MailFrom)

	c.TwilioSID = env("TWILIO_ACCOUNT_SID", c.TwilioSID)
	c.TwilioToken = env("TWILIO_AUTH_TOKEN", c.TwilioToken)
	c.TwilioWhatsAppFrom = env("TWILIO_WHATSAPP_FROM", c.TwilioWhatsAppFrom)
	c.DefaultCountryCode = env("DEFAULT_WHATSAPP_COUNTRY_CODE", c.DefaultCountryCode)
}

// Validate rejects configurations the service cannot run safely with
func (c *Config) Validate() error {
	var errs []error
	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("jwt access and refresh secrets are required"))
	} else if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("jwt access and refresh secrets must differ"))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"jwt access_ttl", c.AccessTTL},
		{"jwt refresh_ttl", c.RefreshTTL},
		{"otp verify_ttl", c.OTPVerifyTTL},
		{"otp reset_ttl", c.OTPResetTTL},
		{"rate_limit auth_window", c.AuthRateWindow},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	if c.OTPResendWindow < 0 {
		errs = append(errs, errors.New("otp resend_window must not be negative"))
	}
	if c.AuthRateLimit < 0 {
		errs = append(errs, errors.New("rate_limit auth_limit must not be negative"))
	}
	return errors.Join(errs...)
}
