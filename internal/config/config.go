package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Version é sobrescrita em build via -ldflags.
var Version = "dev"

type Config struct {
	App         AppConfig
	DB          DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	Storage     StorageConfig
	RateLimit   RateLimitConfig
	IPRateLimit IPRateLimitConfig
	CORS        CORSConfig
	Gateway     GatewayConfig
	Instance    InstanceConfig
	Campaign    CampaignConfig
	Admin       AdminConfig
	Onboarding  OnboardingConfig
}

type StorageConfig struct {
	Driver  string `env:"DB_DRIVER" envDefault:"sqlite"`
	DataDir string `env:"DATA_DIR" envDefault:"/app/data"`
}

type AppConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"zapdash"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN retorna a string de conexão aceita tanto pelo pgxpool quanto pelo lib/pq.
func (cfg DatabaseConfig) DSN() string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
}

type RateLimitConfig struct {
	Enabled       bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests      int    `env:"RATE_LIMIT_REQUESTS" envDefault:"300"`
	WindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	Prefix        string `env:"RATE_LIMIT_PREFIX" envDefault:"ratelimit:api"`
}

type IPRateLimitConfig struct {
	Enabled        bool `env:"IP_RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests       int  `env:"IP_RATE_LIMIT_REQUESTS" envDefault:"20"`
	WindowSeconds  int  `env:"IP_RATE_LIMIT_WINDOW_SECONDS" envDefault:"900"`
	SkipPrivateIPs bool `env:"IP_RATE_LIMIT_SKIP_PRIVATE_IPS" envDefault:"true"`
}

type CORSConfig struct {
	AllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
}

type JWTConfig struct {
	Secret   string `env:"JWT_SECRET,required"`
	ExpHours int    `env:"JWT_EXP_HOURS" envDefault:"24"`
}

func (cfg JWTConfig) TTL() time.Duration {
	return time.Duration(cfg.ExpHours) * time.Hour
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"debug"`
}

// GatewayConfig aponta para a API Evolution que hospeda as instâncias.
type GatewayConfig struct {
	BaseURL                 string `env:"EVOLUTION_API_URL,required,notEmpty"`
	APIKey                  string `env:"EVOLUTION_API_KEY,required,notEmpty"`
	Integration             string `env:"EVOLUTION_INTEGRATION" envDefault:"WHATSAPP-BAILEYS"`
	TimeoutSeconds          int    `env:"EVOLUTION_TIMEOUT_SECONDS" envDefault:"30"`
	BreakerMaxRequests      uint32 `env:"EVOLUTION_BREAKER_MAX_REQUESTS" envDefault:"3"`
	BreakerIntervalSeconds  int    `env:"EVOLUTION_BREAKER_INTERVAL_SECONDS" envDefault:"60"`
	BreakerTimeoutSeconds   int    `env:"EVOLUTION_BREAKER_TIMEOUT_SECONDS" envDefault:"30"`
	BreakerFailureThreshold uint32 `env:"EVOLUTION_BREAKER_FAILURES" envDefault:"5"`
}

type InstanceConfig struct {
	NamePrefix        string `env:"INSTANCE_NAME_PREFIX" envDefault:"inst"`
	SettleDelayMillis int    `env:"INSTANCE_SETTLE_DELAY_MS" envDefault:"2000"`
	QRPollSeconds     int    `env:"QR_POLL_SECONDS" envDefault:"3"`
	QRRefreshSeconds  int    `env:"QR_REFRESH_SECONDS" envDefault:"45"`
	QRIdleSeconds     int    `env:"QR_IDLE_SECONDS" envDefault:"300"`
	ProvisionGuardTTL int    `env:"PROVISION_GUARD_TTL_HOURS" envDefault:"24"`
}

type CampaignConfig struct {
	DefaultIntervalSeconds int    `env:"CAMPAIGN_DEFAULT_INTERVAL_SECONDS" envDefault:"5"`
	CountryCode            string `env:"CAMPAIGN_COUNTRY_CODE" envDefault:"55"`
}

type AdminConfig struct {
	Email                 string `env:"ADMIN_EMAIL"`
	Password              string `env:"ADMIN_PASSWORD"`
	RestartRefreshSeconds int    `env:"ADMIN_RESTART_REFRESH_SECONDS" envDefault:"5"`
}

type OnboardingConfig struct {
	WebhookURL     string `env:"ONBOARDING_WEBHOOK_URL"`
	Workers        int    `env:"ONBOARDING_WORKERS" envDefault:"2"`
	QueueSize      int    `env:"ONBOARDING_QUEUE_SIZE" envDefault:"1000"`
	TimeoutSeconds int    `env:"ONBOARDING_TIMEOUT_SECONDS" envDefault:"15"`
}

// Parse lê o arquivo .env (quando existir) e as variáveis de ambiente.
func Parse() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: falha ao ler .env: %w", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Gateway.BaseURL = strings.TrimRight(cfg.Gateway.BaseURL, "/")
	return cfg, nil
}

// Load carrega as configurações da aplicação.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: não foi possível carregar variáveis: %v", err)
	}
	return cfg
}
