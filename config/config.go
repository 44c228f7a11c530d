package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	S3Config *S3Config
	Cache    CacheConfig
	HTTP     HTTPConfig
	Log      LogConfig
	Sync     SyncConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
	// DefaultTenant is used when a request carries no X-Tenant-ID header.
	DefaultTenant string
	// Locale drives collation of sorted string columns.
	Locale string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type S3Config struct {
	AccessKey  string
	SecretKey  string
	Region     string
	BucketName string
	ServiceUrl string
	BucketUrl  string
	// URLExpiry is the validity window of presigned URLs.
	URLExpiry time.Duration
}

// CacheConfig holds TTLs of the view query cache and the signed URL cache.
type CacheConfig struct {
	GroupsTTL    time.Duration
	FileURLTTL   time.Duration
	ContactsTTL  time.Duration
	RedisPrefix  string
	LocalMaxKeys int
}

type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxUploadBytes   int64
	CORSAllowOrigins []string
	SwaggerEnabled   bool
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// SyncConfig paces sequential group membership batches. A zero rate
// disables pacing.
type SyncConfig struct {
	BatchRate  float64
	BatchBurst int
}

// Load reads config.yaml (if present) and CRM_ prefixed environment
// variables, e.g. CRM_DATABASE_PASSWORD.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/crm-contacts")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:          v.GetString("app.name"),
			Env:           v.GetString("app.env"),
			Port:          v.GetString("app.port"),
			DefaultTenant: v.GetString("app.default_tenant"),
			Locale:        v.GetString("app.locale"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Server:          v.GetString("database.server"),
			Database:        v.GetString("database.database"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		S3Config: &S3Config{
			AccessKey:  v.GetString("s3.access_key"),
			SecretKey:  v.GetString("s3.secret_key"),
			Region:     v.GetString("s3.region"),
			BucketName: v.GetString("s3.bucket_name"),
			ServiceUrl: v.GetString("s3.service_url"),
			BucketUrl:  v.GetString("s3.bucket_url"),
			URLExpiry:  v.GetDuration("s3.url_expiry"),
		},
		Cache: CacheConfig{
			GroupsTTL:    v.GetDuration("cache.groups_ttl"),
			FileURLTTL:   v.GetDuration("cache.file_url_ttl"),
			ContactsTTL:  v.GetDuration("cache.contacts_ttl"),
			RedisPrefix:  v.GetString("cache.redis_prefix"),
			LocalMaxKeys: v.GetInt("cache.local_max_keys"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxUploadBytes:   v.GetInt64("http.max_upload_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			SwaggerEnabled:   v.GetBool("http.swagger_enabled"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Sync: SyncConfig{
			BatchRate:  v.GetFloat64("sync.batch_rate"),
			BatchBurst: v.GetInt("sync.batch_burst"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crm-contacts"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8081"
	}
	if cfg.App.DefaultTenant == "" {
		cfg.App.DefaultTenant = "default"
	}
	if cfg.App.Locale == "" {
		cfg.App.Locale = "en"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "crm.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.S3Config.Region == "" {
		cfg.S3Config.Region = "us-east-1"
	}
	if cfg.S3Config.URLExpiry == 0 {
		cfg.S3Config.URLExpiry = time.Hour
	}
	if cfg.Cache.GroupsTTL == 0 {
		cfg.Cache.GroupsTTL = 45 * time.Second
	}
	if cfg.Cache.FileURLTTL == 0 {
		cfg.Cache.FileURLTTL = 55 * time.Minute
	}
	if cfg.Cache.RedisPrefix == "" {
		cfg.Cache.RedisPrefix = "crm:fileurl:"
	}
	if cfg.Cache.LocalMaxKeys == 0 {
		cfg.Cache.LocalMaxKeys = 10000
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxUploadBytes == 0 {
		cfg.HTTP.MaxUploadBytes = 10 << 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Sync.BatchBurst == 0 {
		cfg.Sync.BatchBurst = 1
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.Server == "" || c.Database.Database == "" {
			return fmt.Errorf("database.server and database.database are required for the mysql driver")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Cache.FileURLTTL >= c.S3Config.URLExpiry {
		return fmt.Errorf("cache.file_url_ttl (%s) must be shorter than s3.url_expiry (%s)",
			c.Cache.FileURLTTL, c.S3Config.URLExpiry)
	}
	if c.Sync.BatchRate < 0 {
		return fmt.Errorf("sync.batch_rate must not be negative")
	}
	return nil
}

// IsProduction reports whether the app runs with env=production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
