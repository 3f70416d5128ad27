package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig `mapstructure:"jwt"`
	Log       LogConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
	Admin     AdminConfig
	Timezone  string
}

type ServerConfig struct {
	Port      string
	Mode      string
	APIPrefix string
}

type DatabaseConfig struct {
	Driver   string // postgres 或 sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string // sqlite 文件路径或完整 DSN，非空时优先使用
	LogLevel string // silent, error, warn, info
}

type JWTConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	TokenDuration   string `mapstructure:"token_duration"`   // 访问令牌有效期，如 "30m"
	RefreshDuration string `mapstructure:"refresh_duration"` // 刷新令牌有效期
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string // 锁键前缀
}

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // 预检请求缓存时间（小时）
}

type StorageConfig struct {
	Root          string // 文档存储目录
	MaxUploadSize int64  // 上传大小上限（字节）
}

type SchedulerConfig struct {
	Enabled  bool
	CronSpec string
	LockTTL  time.Duration
}

type RateLimitConfig struct {
	Auth string // 认证接口限流，格式如 "20-M"
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AdminConfig struct {
	Username string
	Email    string
	Password string
}

var (
	globalConfig *Config
	once         sync.Once
)

// GetConfig 获取全局配置
func GetConfig() *Config {
	once.Do(func() {
		var err error
		globalConfig, err = LoadConfig()
		if err != nil {
			panic("Failed to load config: " + err.Error())
		}
	})
	return globalConfig
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// 获取环境变量转换为字符串数组（逗号分隔）
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

// LoadConfig 从环境变量加载配置（存在 .env 时先加载）
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			Mode:      getEnv("SERVER_MODE", "debug"),
			APIPrefix: getEnv("SERVER_API_PREFIX", "/api"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "rentbook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			DSN:      getEnv("DB_DSN", ""),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET_KEY", "default-secret-change-me"),
			TokenDuration:   getEnv("JWT_TOKEN_DURATION", "30m"),
			RefreshDuration: getEnv("JWT_REFRESH_DURATION", "168h"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "rentbook:lock"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type", "X-Request-ID"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
		Storage: StorageConfig{
			Root:          getEnv("STORAGE_ROOT", "media"),
			MaxUploadSize: getEnvAsInt64("STORAGE_MAX_UPLOAD_SIZE", 20<<20),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvAsBool("SCHEDULER_ENABLED", true),
			CronSpec: getEnv("SCHEDULER_CRON", "0 8 * * *"),
			LockTTL:  getEnvAsDuration("SCHEDULER_LOCK_TTL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Auth: getEnv("RATE_LIMIT_AUTH", "20-M"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Email:    getEnv("ADMIN_EMAIL", "admin@localhost"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Timezone: getEnv("TZ_NAME", "UTC"),
	}

	return config, nil
}

// AccessTokenDuration 访问令牌有效期，解析失败时为30分钟
func (c *Config) AccessTokenDuration() time.Duration {
	if d, err := time.ParseDuration(c.JWT.TokenDuration); err == nil {
		return d
	}
	return 30 * time.Minute
}

// RefreshTokenDuration 刷新令牌有效期，解析失败时为7天
func (c *Config) RefreshTokenDuration() time.Duration {
	if d, err := time.ParseDuration(c.JWT.RefreshDuration); err == nil {
		return d
	}
	return 7 * 24 * time.Hour
}

// Location 业务时区，无法识别时使用UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
