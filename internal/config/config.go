package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	Pin       PinConfig       `yaml:"pin"`
	Safety    SafetyConfig    `yaml:"safety"`
	Agent     AgentConfig     `yaml:"agent"`
	Turn      TurnConfig      `yaml:"turn"`
	Router    RouterConfig    `yaml:"router"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds web-transport token verification settings. WhatsApp turns
// authenticate with PIN + session; web turns may instead carry a JWT minted
// by the frontend auth provider.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"pazarglobal"`
}

// SessionConfig holds timed-session settings.
type SessionConfig struct {
	TTLSeconds    int           `yaml:"ttl_seconds"    env:"SESSION_TTL_SECONDS" env-default:"600"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"5m"`
}

// TTL returns the session time-to-live as a duration.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// PinConfig holds PIN brute-force protection settings.
type PinConfig struct {
	MaxFailed   int `yaml:"max_failed"   env:"PIN_MAX_FAILED"   env-default:"3"`
	LockSeconds int `yaml:"lock_seconds" env:"PIN_LOCK_SECONDS" env-default:"900"`
}

// LockDuration returns the lockout window as a duration.
func (c PinConfig) LockDuration() time.Duration {
	return time.Duration(c.LockSeconds) * time.Second
}

// SafetyConfig holds image-safety classifier settings.
type SafetyConfig struct {
	BaseURL   string `yaml:"base_url"   env:"SAFETY_BASE_URL"`
	TimeoutMS int    `yaml:"timeout_ms" env:"SAFETY_TIMEOUT_MS" env-default:"8000"`
	FailOpen  bool   `yaml:"fail_open"  env:"SAFETY_FAIL_OPEN"  env-default:"true"`
}

// Timeout returns the classifier call timeout.
func (c SafetyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// AgentConfig holds agent-backend client settings.
type AgentConfig struct {
	BaseURL   string `yaml:"base_url"   env:"AGENT_BASE_URL"`
	TimeoutMS int    `yaml:"timeout_ms" env:"AGENT_TIMEOUT_MS" env-default:"15000"`
}

// Timeout returns the agent call timeout.
func (c AgentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TurnConfig bounds one inbound turn.
type TurnConfig struct {
	DeadlineMS int `yaml:"deadline_ms" env:"TURN_DEADLINE_MS" env-default:"20000"`
}

// Deadline returns the hard wall-clock bound for one turn.
func (c TurnConfig) Deadline() time.Duration {
	return time.Duration(c.DeadlineMS) * time.Millisecond
}

// RouterConfig holds the intent-router keyword sets. Each raw value is a
// comma-separated list; Validate parses them into slices. Defaults encode
// the observed Turkish disambiguations and must stay in sync with the
// router's ordered rules.
type RouterConfig struct {
	CancelKeywordsRaw     string `yaml:"cancel_keywords"      env:"CANCEL_KEYWORDS"      env-default:"iptal,vazgeç,kapat,çık,cancel,stop"`
	DeleteTriggersRaw     string `yaml:"delete_triggers"      env:"DELETE_TRIGGERS"      env-default:"sil,silebilir,silmek,silme,kaldır"`
	OwnListingTriggersRaw string `yaml:"own_listing_triggers" env:"OWN_LISTING_TRIGGERS" env-default:"ilanlarım,ilanlarımı,bana ait"`
	AllListingTriggersRaw string `yaml:"all_listing_triggers" env:"ALL_LISTING_TRIGGERS" env-default:"tüm ilanlar,tüm ilanları,kime ait"`
	UpdateTriggersRaw     string `yaml:"update_triggers"      env:"UPDATE_TRIGGERS"      env-default:"değiştir,güncelle,düzenle"`
	ConfirmTriggersRaw    string `yaml:"confirm_triggers"     env:"CONFIRM_TRIGGERS"     env-default:"onayla,yayınla,tamam,evet,paylaş,onaylıyorum"`
	SellTriggersRaw       string `yaml:"sell_triggers"        env:"SELL_TRIGGERS"        env-default:"satıyorum,satmak,satayım,ilan ver"`
	BuyTriggersRaw        string `yaml:"buy_triggers"         env:"BUY_TRIGGERS"         env-default:"almak,alıcı,arıyorum,var mı,bul,uygun,ucuz"`

	// Parsed during validation.
	CancelKeywords     []string `yaml:"-" env:"-"`
	DeleteTriggers     []string `yaml:"-" env:"-"`
	OwnListingTriggers []string `yaml:"-" env:"-"`
	AllListingTriggers []string `yaml:"-" env:"-"`
	UpdateTriggers     []string `yaml:"-" env:"-"`
	ConfirmTriggers    []string `yaml:"-" env:"-"`
	SellTriggers       []string `yaml:"-" env:"-"`
	BuyTriggers        []string `yaml:"-" env:"-"`
}

// KafkaConfig holds event-producer settings. An empty broker list disables
// publishing entirely.
type KafkaConfig struct {
	BrokersRaw     string `yaml:"brokers"         env:"KAFKA_BROKERS"`
	ListingTopic   string `yaml:"listing_topic"   env:"KAFKA_LISTING_TOPIC"   env-default:"listing.published"`
	SafetyTopic    string `yaml:"safety_topic"    env:"KAFKA_SAFETY_TOPIC"    env-default:"image.flagged"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms" env:"KAFKA_WRITE_TIMEOUT_MS" env-default:"5000"`

	Brokers []string `yaml:"-" env:"-"`
}

// Enabled reports whether an event producer should be constructed.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"3600"`
}

// RateLimitConfig holds per-identifier request limits.
type RateLimitConfig struct {
	MaxPerMinute int `yaml:"max_per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"100"`
}
