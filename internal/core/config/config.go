package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

const DefaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`

	// 中间件
	RequestTimeoutSec int     `mapstructure:"request_timeout_sec"`
	MaxBodyBytes      int64   `mapstructure:"max_body_bytes"`
	MaxConcurrent     int64   `mapstructure:"max_concurrent"`
	RateLimitRPS      float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
	AuthRPSPerIP      float64 `mapstructure:"auth_rps_per_ip"`
	AuthBurstPerIP    int     `mapstructure:"auth_burst_per_ip"`

	// 只信任这些代理传来的 X-Forwarded-For；为空则直接用 RemoteAddr
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type AdminHTTP struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type App struct {
	Name  string    `mapstructure:"name"`
	Env   string    `mapstructure:"env"`
	HTTP  HTTP      `mapstructure:"http"`
	Admin AdminHTTP `mapstructure:"admin"`
}

type LogFile struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level string  `mapstructure:"level"`
	JSON  bool    `mapstructure:"json"`
	File  LogFile `mapstructure:"file"`
}

type JWT struct {
	Secret            string `mapstructure:"secret"`
	Issuer            string `mapstructure:"issuer"`
	AccessTokenTTLMin int    `mapstructure:"access_token_ttl_min"`
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

type Password struct {
	Cost int `mapstructure:"cost"`
}

type DB struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

type Config struct {
	App      App      `mapstructure:"app"`
	Log      Log      `mapstructure:"log"`
	JWT      JWT      `mapstructure:"jwt"`
	Password Password `mapstructure:"password"`
	DB       DB       `mapstructure:"db"`
}

// legacyEnv 兼容旧部署使用的环境变量名
type legacyEnv struct {
	JWTSecret string `env:"JWT_SECRET"`
	Port      int    `env:"PORT"`
	NodeEnv   string `env:"NODE_ENV"`
	AppEnv    string `env:"APP_ENV"`
}

// Load 读取配置，失败直接退出
func Load(path string) *Config {
	c, err := Parse(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// Parse reads the YAML file at path (CONFIG_PATH or DefaultPath when empty),
// applies APP_* and legacy env overrides and validates the result. A missing
// default file is not an error; a missing explicit file is.
func Parse(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
		if path == "" {
			path = DefaultPath
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	var le legacyEnv
	if err := env.Parse(&le); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if le.JWTSecret != "" {
		c.JWT.Secret = le.JWTSecret
	}
	if le.Port != 0 {
		c.App.HTTP.Port = le.Port
	}
	if le.NodeEnv != "" {
		c.App.Env = le.NodeEnv
	}
	if le.AppEnv != "" {
		c.App.Env = le.AppEnv
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "accounts")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8000)
	v.SetDefault("app.http.read_timeout_sec", 5)
	v.SetDefault("app.http.write_timeout_sec", 10)
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.http.request_timeout_sec", 10)
	v.SetDefault("app.http.max_body_bytes", 1<<20)
	v.SetDefault("app.http.max_concurrent", 300)
	v.SetDefault("app.http.rate_limit_rps", 200)
	v.SetDefault("app.http.rate_limit_burst", 400)
	v.SetDefault("app.http.auth_rps_per_ip", 5)
	v.SetDefault("app.http.auth_burst_per_ip", 10)
	v.SetDefault("app.http.trusted_proxies", []string{})
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8001)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.access_token_ttl_min", 60)

	v.SetDefault("password.cost", 10)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:accounts.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		return fmt.Errorf("jwt.access_token_ttl_min must be positive, got %d", c.JWT.AccessTokenTTLMin)
	}
	if c.Password.Cost < 4 || c.Password.Cost > 31 {
		return fmt.Errorf("password.cost must be within [4,31], got %d", c.Password.Cost)
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("db.driver %q is not supported", c.DB.Driver)
	}
	return nil
}

func (c *Config) Production() bool { return c.App.Env == "production" }
