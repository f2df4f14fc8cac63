package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Platform PlatformConfig `mapstructure:"platform"`
	Cron     CronConfig     `mapstructure:"cron"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// StoreConfig selects the persistence backend. "memory" keeps all state in
// process and is meant for local runs and tests.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type CacheConfig struct {
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	// Oracles and Operators list addresses that receive the matching role on login.
	Oracles   []string `mapstructure:"oracles"`
	Operators []string `mapstructure:"operators"`
}

// PlatformConfig holds the bootstrap values used to initialize the platform
// on first boot. After that the persisted configuration is authoritative and
// only governance can change it.
type PlatformConfig struct {
	Treasury       string   `mapstructure:"treasury"`
	ReferralPool   string   `mapstructure:"referral_pool"`
	Verifier       string   `mapstructure:"verifier"`
	AdminSigners   []string `mapstructure:"admin_signers"`
	PlatformFeeBps int64    `mapstructure:"platform_fee_bps"`
	TreasuryFeeBps int64    `mapstructure:"treasury_fee_bps"`
	ReferralFeeBps int64    `mapstructure:"referral_fee_bps"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	RefundSweep string `mapstructure:"refund_sweep"`
	Archive     string `mapstructure:"archive"`
	SweepLimit  int    `mapstructure:"sweep_limit"`
}

type NotifyConfig struct {
	Project  string          `mapstructure:"project"`
	Channels []ChannelConfig `mapstructure:"channels"`
	Timeout  time.Duration   `mapstructure:"timeout"`
}

type ChannelConfig struct {
	Type   string   `mapstructure:"type"`
	Events []string `mapstructure:"events"`

	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`

	// Webhook
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

type ArchiveConfig struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	AccessKeySecret string        `mapstructure:"access_key_secret"`
	Prefix          string        `mapstructure:"prefix"`
	BatchSize       int           `mapstructure:"batch_size"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryAfter      time.Duration `mapstructure:"retry_after"`
}

func (c ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

// Load reads configuration from the yaml file at path (unless envOnly) and
// from ESCROW_* environment variables. A .env file in the working directory
// is loaded first when present.
func Load(path string, envOnly bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("ESCROW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "escrow:")
	v.SetDefault("cache.stats_ttl", "15s")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.challenge_ttl", "5m")
	v.SetDefault("platform.platform_fee_bps", 650)
	v.SetDefault("platform.treasury_fee_bps", 550)
	v.SetDefault("platform.referral_fee_bps", 100)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.refund_sweep", "*/30 * * * * *")
	v.SetDefault("cron.archive", "@every 1h")
	v.SetDefault("cron.sweep_limit", 200)
	v.SetDefault("notify.project", "wagerescrow")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("archive.region", "auto")
	v.SetDefault("archive.prefix", "matches")
	v.SetDefault("archive.batch_size", 100)
	v.SetDefault("archive.max_attempts", 5)
	v.SetDefault("archive.retry_after", time.Hour)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
