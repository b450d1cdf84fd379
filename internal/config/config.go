package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Mail      MailConfig      `mapstructure:"mail"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // mysql | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	// SQLitePath is only read when Driver is sqlite.
	SQLitePath string `mapstructure:"sqlite_path"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Host     string
	Port     int
	Password string
	DB       int
	// CourseCacheMinutes 课程树缓存时间，0 表示不缓存
	CourseCacheMinutes int `mapstructure:"course_cache_minutes"`
}

// QuizConfig 测验评分与重考策略
type QuizConfig struct {
	PassingScore        float64 `mapstructure:"passing_score"`
	RetakeCooldownHours int     `mapstructure:"retake_cooldown_hours"`
	// WatchRatio 视频资源需观看的最小比例，完成模块前校验
	WatchRatio float64 `mapstructure:"watch_ratio"`
}

func (q QuizConfig) RetakeCooldown() time.Duration {
	return time.Duration(q.RetakeCooldownHours) * time.Hour
}

type MailConfig struct {
	SendGridKey string `mapstructure:"sendgrid_key"`
	FromName    string `mapstructure:"from_name"`
	FromEmail   string `mapstructure:"from_email"`
}

type SchedulerConfig struct {
	ProgressSyncSpec string `mapstructure:"progress_sync_spec"`
}

// Default 返回未读取配置文件时使用的默认值
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", Mode: "debug"},
		Database:  DatabaseConfig{Driver: "mysql", Charset: "utf8mb4", ParseTime: true},
		JWT:       JWTConfig{ExpireTime: 72 * time.Hour},
		Storage:   StorageConfig{Type: "local", LocalPath: "uploads", MaxUploadMB: 200},
		RateLimit: RateLimitConfig{MaxRequests: 6000, WindowMinutes: 1},
		Redis:     RedisConfig{CourseCacheMinutes: 10},
		Quiz: QuizConfig{
			PassingScore:        50,
			RetakeCooldownHours: 24,
			WatchRatio:          0.9,
		},
		Scheduler: SchedulerConfig{ProgressSyncSpec: "0 3 * * *"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.charset", d.Database.Charset)
	v.SetDefault("database.parsetime", d.Database.ParseTime)
	v.SetDefault("database.sqlite_path", "learnhub.db")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.local_path", d.Storage.LocalPath)
	v.SetDefault("storage.max_upload_mb", d.Storage.MaxUploadMB)
	v.SetDefault("rate_limit.max_requests", d.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.window_minutes", d.RateLimit.WindowMinutes)
	v.SetDefault("redis.course_cache_minutes", d.Redis.CourseCacheMinutes)
	v.SetDefault("quiz.passing_score", d.Quiz.PassingScore)
	v.SetDefault("quiz.retake_cooldown_hours", d.Quiz.RetakeCooldownHours)
	v.SetDefault("quiz.watch_ratio", d.Quiz.WatchRatio)
	v.SetDefault("mail.from_name", "LearnHub")
	v.SetDefault("scheduler.progress_sync_spec", d.Scheduler.ProgressSyncSpec)
}

func LoadConfig(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LEARNHUB")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Mail
	v.BindEnv("mail.sendgrid_key", "SENDGRID_API_KEY")
	v.BindEnv("mail.from_email", "MAIL_FROM")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Quiz.PassingScore < 0 || c.Quiz.PassingScore > 100 {
		return fmt.Errorf("quiz.passing_score must be within [0, 100], got %v", c.Quiz.PassingScore)
	}
	if c.Quiz.WatchRatio < 0 || c.Quiz.WatchRatio > 1 {
		return fmt.Errorf("quiz.watch_ratio must be within [0, 1], got %v", c.Quiz.WatchRatio)
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}
