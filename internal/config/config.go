package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Presence PresenceConfig `mapstructure:"presence"`
	Signals  SignalsConfig  `mapstructure:"signals"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
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

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type PresenceConfig struct {
	// FreshWindow is the maximum age of a presence update for its user to be
	// considered currently present.
	FreshWindow time.Duration `mapstructure:"fresh_window"`
	// RadiusMeters bounds candidate distance (45.72m = 150 feet).
	RadiusMeters float64 `mapstructure:"radius_meters"`
	// HeartbeatInterval is advertised to clients; the server itself only
	// requires updates to land within FreshWindow.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type SignalsConfig struct {
	// TTL is the fixed expiry horizon stamped on every new signal.
	TTL time.Duration `mapstructure:"ttl"`
	// InboxWindow hides unanswered incoming signals older than this from the
	// incoming view even before formal expiry.
	InboxWindow time.Duration `mapstructure:"inbox_window"`
	ExpireSweep string        `mapstructure:"expire_sweep"`
}

type RealtimeConfig struct {
	// RedisAddr enables the cross-instance pub/sub backplane when non-empty.
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	Channel         string        `mapstructure:"channel"`
	SubscriberBuf   int           `mapstructure:"subscriber_buf"`
	OutboxRetention time.Duration `mapstructure:"outbox_retention"`
	OutboxPrune     string        `mapstructure:"outbox_prune"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
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
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("presence.fresh_window", "2m")
	v.SetDefault("presence.radius_meters", 45.72)
	v.SetDefault("presence.heartbeat_interval", "45s")
	v.SetDefault("signals.ttl", "5m")
	v.SetDefault("signals.inbox_window", "5m")
	v.SetDefault("signals.expire_sweep", "@every 30s")
	v.SetDefault("realtime.redis_addr", "")
	v.SetDefault("realtime.redis_db", 0)
	v.SetDefault("realtime.channel", "signalapp:events")
	v.SetDefault("realtime.subscriber_buf", 16)
	v.SetDefault("realtime.outbox_retention", "1h")
	v.SetDefault("realtime.outbox_prune", "@every 10m")

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
