package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
)

var (
	config     *Config
	configOnce sync.Once
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string `env:"ENV_TYPE" envDefault:"LOCAL"`

	// Database
	DBHost          string `env:"DB_HOST" envDefault:"localhost"`
	DBUser          string `env:"DB_USER" envDefault:"root"`
	DBPassword      string `env:"DB_PASSWORD"`
	DBName          string `env:"DB_NAME" envDefault:"house_rent_db"`
	DBPort          string `env:"DB_PORT" envDefault:"3306"`
	DBMigrationMode string `env:"DB_MIGRATION_MODE" envDefault:"auto"` // 数据库迁移模式: "auto"(默认), "drop"(删除重建)

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	// 允许跨域的来源，逗号分隔，"*" 表示全部
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// 缓存：关闭时使用进程内存缓存
	CacheEnabled bool          `env:"CACHE_ENABLED" envDefault:"true"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"15m"`

	// MQTT短信网关
	SMSEnabled     bool   `env:"SMS_ENABLED" envDefault:"false"`
	SMSTopic       string `env:"SMS_TOPIC" envDefault:"rent/sms/outbound"`
	MQTTBrokerURL  string `env:"MQTT_BROKER_URL" envDefault:"tcp://localhost:1883"`
	MQTTClientID   string `env:"MQTT_CLIENT_ID" envDefault:"house_rent_server"`
	MQTTUsername   string `env:"MQTT_USERNAME"`
	MQTTPassword   string `env:"MQTT_PASSWORD"`
	MQTTQoS        int    `env:"MQTT_QOS" envDefault:"1"`
	MQTTSSLEnabled bool   `env:"MQTT_SSL_ENABLED" envDefault:"false"`

	// 账务
	LedgerAllowCredit bool   `env:"LEDGER_ALLOW_CREDIT" envDefault:"true"` // 是否允许超额付款形成负余额
	Currency          string `env:"CURRENCY" envDefault:"KES"`

	// 租金提醒定时任务
	ReminderEnabled bool `env:"REMINDER_ENABLED" envDefault:"true"`
	ReminderHour    int  `env:"REMINDER_HOUR" envDefault:"8"`

	// JWT Authentication
	JWTSecretKey string `env:"JWT_SECRET_KEY" envDefault:"house-rent-secret-key-change-in-production"`

	// Admin
	DefaultAdminPassword string `env:"DEFAULT_ADMIN_PASSWORD" envDefault:"admin123"`
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() (*Config, error) {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			environ[kv[:i]] = kv[i+1:]
		}
	}
	return LoadConfigFromMap(environ)
}

// LoadConfigFromMap 从给定的环境变量集合解析配置。
// ENV_TYPE 为 LOCAL 或 SERVER 时，带 LOCAL_/SERVER_ 前缀的变量覆盖同名的无前缀变量
func LoadConfigFromMap(environ map[string]string) (*Config, error) {
	envType := strings.ToUpper(environ["ENV_TYPE"])
	if envType == "" {
		envType = "LOCAL"
	}
	if envType != "LOCAL" && envType != "SERVER" {
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		envType = "LOCAL"
	}
	prefix := envType + "_"

	merged := make(map[string]string, len(environ))
	for k, v := range environ {
		merged[k] = v
	}
	for k, v := range environ {
		if strings.HasPrefix(k, prefix) {
			merged[strings.TrimPrefix(k, prefix)] = v
		}
	}
	merged["ENV_TYPE"] = envType

	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Environment: merged}); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			panic(err)
		}
		config = cfg
	})
	return config
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true"
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
