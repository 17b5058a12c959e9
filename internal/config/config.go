package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"escape-rose/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys double as flag names. The matching environment variable is the key
// uppercased with dashes turned into underscores.
const (
	KeyPort                = "port"
	KeyDatabaseURL         = "database-url"
	KeyRedisURL            = "redis-url"
	KeySessionSecret       = "session-secret"
	KeyPublicURL           = "public-url"
	KeyLogLevel            = "log-level"
	KeyMaxPlayers          = "max-players"
	KeyMinPlayers          = "min-players"
	KeySessionPollAttempts = "session-poll-attempts"
	KeySessionPollDelayMS  = "session-poll-delay-ms"
	KeyRoomTTLMinutes      = "room-ttl-minutes"
	KeyDBMaxOpenConns      = "db-max-open-conns"
	KeyDBMaxIdleConns      = "db-max-idle-conns"
	KeyDBConnMaxLifetime   = "db-conn-max-lifetime-seconds"
	KeyDBConnMaxIdle       = "db-conn-max-idle-seconds"
)

type Config struct {
	Port                     int
	DatabaseURL              string
	RedisURL                 string
	SessionSecret            string
	PublicURL                string
	LogLevel                 string
	MaxPlayers               int
	MinPlayers               int
	SessionPollAttempts      int
	SessionPollDelayMS       int
	RoomTTLMinutes           int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Port:                     8080,
		LogLevel:                 "info",
		MaxPlayers:               4,
		MinPlayers:               2,
		SessionPollAttempts:      10,
		SessionPollDelayMS:       100,
		RoomTTLMinutes:           120,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

// RegisterFlags declares every setting on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.IntP(KeyPort, "p", d.Port, "port to listen on (env: PORT)")
	fs.String(KeyDatabaseURL, "", "postgres DSN; empty keeps everything in memory (env: DATABASE_URL)")
	fs.String(KeyRedisURL, "", "redis URL for the change feed; empty uses an in-process feed (env: REDIS_URL)")
	fs.String(KeySessionSecret, "", "HMAC secret for session cookies (env: SESSION_SECRET)")
	fs.String(KeyPublicURL, "", "base URL printed in join links and QR codes (env: PUBLIC_URL)")
	fs.String(KeyLogLevel, d.LogLevel, "log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.Int(KeyMaxPlayers, d.MaxPlayers, "players per room (env: MAX_PLAYERS)")
	fs.Int(KeyMinPlayers, d.MinPlayers, "players needed to start (env: MIN_PLAYERS)")
	fs.Int(KeySessionPollAttempts, d.SessionPollAttempts, "session polls before a client gives up (env: SESSION_POLL_ATTEMPTS)")
	fs.Int(KeySessionPollDelayMS, d.SessionPollDelayMS, "delay between session polls in ms (env: SESSION_POLL_DELAY_MS)")
	fs.Int(KeyRoomTTLMinutes, d.RoomTTLMinutes, "minutes before an unstarted room expires, 0 disables (env: ROOM_TTL_MINUTES)")
	fs.Int(KeyDBMaxOpenConns, d.DBMaxOpenConns, "env: DB_MAX_OPEN_CONNS")
	fs.Int(KeyDBMaxIdleConns, d.DBMaxIdleConns, "env: DB_MAX_IDLE_CONNS")
	fs.Int(KeyDBConnMaxLifetime, d.DBConnMaxLifetimeSeconds, "env: DB_CONN_MAX_LIFETIME_SECONDS")
	fs.Int(KeyDBConnMaxIdle, d.DBConnMaxIdleTimeSeconds, "env: DB_CONN_MAX_IDLE_SECONDS")
}

// NewViper binds fs and the environment. Flags set on the command line
// win over the environment, which wins over the defaults.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return v, bindErr
}

// Load reads every setting from v. Non-positive numbers fall back to the
// defaults, except ROOM_TTL_MINUTES where 0 turns the janitor off.
func Load(v *viper.Viper) Config {
	cfg := Default()
	cfg.DatabaseURL = v.GetString(KeyDatabaseURL)
	cfg.RedisURL = v.GetString(KeyRedisURL)
	cfg.SessionSecret = v.GetString(KeySessionSecret)
	cfg.PublicURL = strings.TrimRight(v.GetString(KeyPublicURL), "/")
	if raw := v.GetString(KeyLogLevel); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	positive(v, KeyPort, &cfg.Port)
	positive(v, KeyMaxPlayers, &cfg.MaxPlayers)
	positive(v, KeyMinPlayers, &cfg.MinPlayers)
	positive(v, KeySessionPollAttempts, &cfg.SessionPollAttempts)
	positive(v, KeySessionPollDelayMS, &cfg.SessionPollDelayMS)
	positive(v, KeyDBMaxOpenConns, &cfg.DBMaxOpenConns)
	positive(v, KeyDBMaxIdleConns, &cfg.DBMaxIdleConns)
	positive(v, KeyDBConnMaxLifetime, &cfg.DBConnMaxLifetimeSeconds)
	positive(v, KeyDBConnMaxIdle, &cfg.DBConnMaxIdleTimeSeconds)
	if v.IsSet(KeyRoomTTLMinutes) {
		if value := v.GetInt(KeyRoomTTLMinutes); value >= 0 {
			cfg.RoomTTLMinutes = value
		}
	}
	return cfg
}

func positive(v *viper.Viper, key string, dst *int) {
	if !v.IsSet(key) {
		return
	}
	if value := v.GetInt(key); value > 0 {
		*dst = value
	}
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("min players (%d) exceeds max players (%d)", c.MinPlayers, c.MaxPlayers)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

func (c Config) Pool() db.PoolConfig {
	return db.PoolConfig{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(c.DBConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(c.DBConnMaxIdleTimeSeconds) * time.Second,
	}
}

func (c Config) SessionPollDelay() time.Duration {
	return time.Duration(c.SessionPollDelayMS) * time.Millisecond
}

func (c Config) RoomTTL() time.Duration {
	return time.Duration(c.RoomTTLMinutes) * time.Minute
}

// Address is the listen address for Port.
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}
