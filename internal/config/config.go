package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "KANSO"

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required|min:1|max:65535"`
	Mode            string        `mapstructure:"mode" validate:"required|in:debug,release,test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required|in:postgres,memory"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode" validate:"in:disable,require,verify-ca,verify-full"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min:1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// DSN is the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min:0|max:15"`
}

type CacheConfig struct {
	// Driver selects the Store behind the habit list cache and reminder
	// dedup. "redis" requires redis.enabled.
	Driver       string        `mapstructure:"driver" validate:"required|in:redis,memory"`
	SizeMB       int           `mapstructure:"size_mb" validate:"min:1"`
	HabitListTTL time.Duration `mapstructure:"habit_list_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required|minLen:16"`
	Issuer    string        `mapstructure:"issuer" validate:"required"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggerConfig struct {
	Level   string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

type StreakConfig struct {
	DefaultTimezone  string `mapstructure:"default_timezone" validate:"required"`
	DefaultGraceHour int    `mapstructure:"default_grace_hour" validate:"min:0|max:23"`
}

type WorkerConfig struct {
	QueueSize int `mapstructure:"queue_size" validate:"min:1"`
}

type ReminderConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Channel  string        `mapstructure:"channel"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit" validate:"min:1"`
	Window  time.Duration `mapstructure:"window"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Streak    StreakConfig    `mapstructure:"streak"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "kanso_user")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "kanso_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.size_mb", 32)
	v.SetDefault("cache.habit_list_ttl", 30*time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "kanso-streak-engine")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.console", true)

	v.SetDefault("streak.default_timezone", "UTC")
	v.SetDefault("streak.default_grace_hour", 3)

	v.SetDefault("worker.queue_size", 100)

	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.interval", 15*time.Minute)
	v.SetDefault("reminder.channel", "kanso:reminders")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("metrics.enabled", true)
}

// legacyEnv maps keys to the variable names used by the docker-compose
// setup. The KANSO_ form always wins.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"redis.host":        "REDIS_HOST",
	"redis.port":        "REDIS_PORT",
	"redis.password":    "REDIS_PASSWORD",
	"auth.jwt_secret":   "JWT_SECRET",
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads an optional .env file, defaults, an optional YAML file at path
// and the environment, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

// Validate checks every section with its validate tags, then the rules
// that span fields.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		data interface{}
	}{
		{"server", &c.Server},
		{"database", &c.Database},
		{"redis", &c.Redis},
		{"cache", &c.Cache},
		{"auth", &c.Auth},
		{"logger", &c.Logger},
		{"streak", &c.Streak},
		{"worker", &c.Worker},
		{"ratelimit", &c.RateLimit},
	}

	for _, s := range sections {
		v := validate.Struct(s.data)
		if !v.Validate() {
			return fmt.Errorf("config: %s: %s", s.name, v.Errors.One())
		}
	}

	if _, err := time.LoadLocation(c.Streak.DefaultTimezone); err != nil {
		return fmt.Errorf("config: streak: unknown timezone %q", c.Streak.DefaultTimezone)
	}
	if c.Cache.Driver == "redis" && !c.Redis.Enabled {
		return errors.New("config: cache: driver redis requires redis.enabled")
	}
	if c.Reminder.Enabled && c.Reminder.Interval <= 0 {
		return errors.New("config: reminder: interval must be positive")
	}

	return nil
}
