package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config 全量配置，config.yaml + FEEDGRAPH_* 环境变量覆盖
type Config struct {
    Server    ServerConfig    `mapstructure:"server"`
    Database  DatabaseConfig  `mapstructure:"database"`
    Redis     RedisConfig     `mapstructure:"redis"`
    Log       LogConfig       `mapstructure:"log"`
    JWT       JWTConfig       `mapstructure:"jwt"`
    RateLimit RateLimitConfig `mapstructure:"rate_limit"`
    FeedCache FeedCacheConfig `mapstructure:"feed_cache"`
    Trace     TraceConfig     `mapstructure:"trace"`
    Sentry    SentryConfig    `mapstructure:"sentry"`
    Admin     AdminConfig     `mapstructure:"admin"`
}

type ServerConfig struct {
    Port int    `mapstructure:"port"`
    Mode string `mapstructure:"mode"` // debug / release
}

type DatabaseConfig struct {
    Host         string `mapstructure:"host"`
    Port         int    `mapstructure:"port"`
    User         string `mapstructure:"user"`
    Password     string `mapstructure:"password"`
    Name         string `mapstructure:"name"`
    SSLMode      string `mapstructure:"ssl_mode"`
    MaxOpenConns int    `mapstructure:"max_open_conns"`
    MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN 拼接 postgres 连接串。
func (d DatabaseConfig) DSN() string {
    return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
        d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type RedisConfig struct {
    Addr     string `mapstructure:"addr"`
    Password string `mapstructure:"password"`
    DB       int    `mapstructure:"db"`
}

type LogConfig struct {
    Level string `mapstructure:"level"`
    JSON  bool   `mapstructure:"json"`
}

type JWTConfig struct {
    Secret string `mapstructure:"secret"`
}

// RateLimitConfig 两层限流：发帖滑动窗口（落库判定）与 HTTP 令牌桶
type RateLimitConfig struct {
    PostsPerWindow int `mapstructure:"posts_per_window"`
    WindowMinutes  int `mapstructure:"window_minutes"`
    HTTPRPS        int `mapstructure:"http_rps"`
    HTTPBurst      int `mapstructure:"http_burst"`
}

// Window 发帖限流窗口时长。
func (r RateLimitConfig) Window() time.Duration {
    return time.Duration(r.WindowMinutes) * time.Minute
}

type FeedCacheConfig struct {
    Enabled    bool `mapstructure:"enabled"`
    TTLSeconds int  `mapstructure:"ttl_seconds"`
}

func (f FeedCacheConfig) TTL() time.Duration {
    return time.Duration(f.TTLSeconds) * time.Second
}

type TraceConfig struct {
    Enabled  bool   `mapstructure:"enabled"`
    Endpoint string `mapstructure:"endpoint"`
}

type SentryConfig struct {
    DSN string `mapstructure:"dsn"`
}

// AdminConfig 运维接口（重建计数等）的准入钥匙。
// key_hash 存 bcrypt 哈希而不是明文；留空时仅要求已登录。
type AdminConfig struct {
    KeyHash string `mapstructure:"key_hash"`
}

// Load 读取 config.yaml（当前目录或 ./config），环境变量 FEEDGRAPH_* 优先。
func Load() (*Config, error) {
    v := viper.New()
    v.SetConfigName("config")
    v.SetConfigType("yaml")
    v.AddConfigPath(".")
    v.AddConfigPath("./config")

    v.SetEnvPrefix("FEEDGRAPH")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    setDefaults(v)

    if err := v.ReadInConfig(); err != nil {
        // 没有配置文件时退回默认值 + 环境变量
        if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    var cfg Config
    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("unmarshal config: %w", err)
    }
    return &cfg, nil
}

func setDefaults(v *viper.Viper) {
    v.SetDefault("server.port", 8080)
    v.SetDefault("server.mode", "debug")

    v.SetDefault("database.host", "localhost")
    v.SetDefault("database.port", 5432)
    v.SetDefault("database.user", "postgres")
    v.SetDefault("database.password", "postgres")
    v.SetDefault("database.name", "feedgraph")
    v.SetDefault("database.ssl_mode", "disable")
    v.SetDefault("database.max_open_conns", 50)
    v.SetDefault("database.max_idle_conns", 10)

    v.SetDefault("redis.addr", "localhost:6379")
    v.SetDefault("redis.password", "")
    v.SetDefault("redis.db", 0)

    v.SetDefault("log.level", "info")
    v.SetDefault("log.json", false)

    v.SetDefault("jwt.secret", "dev-secret-change-me")

    v.SetDefault("rate_limit.posts_per_window", 20)
    v.SetDefault("rate_limit.window_minutes", 60)
    v.SetDefault("rate_limit.http_rps", 50)
    v.SetDefault("rate_limit.http_burst", 100)

    v.SetDefault("feed_cache.enabled", false)
    v.SetDefault("feed_cache.ttl_seconds", 30)

    v.SetDefault("trace.enabled", false)
    v.SetDefault("trace.endpoint", "localhost:4318")

    v.SetDefault("sentry.dsn", "")

    v.SetDefault("admin.key_hash", "")
}
