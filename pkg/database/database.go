package database

import (
    "context"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    gormlogger "gorm.io/gorm/logger"

    "github.com/d60-Lab/feedgraph/config"
)

// InitDB 连接 postgres 并设置连接池。
func InitDB(cfg *config.Config) (*gorm.DB, error) {
    gormCfg := &gorm.Config{
        Logger: gormlogger.Default.LogMode(gormlogger.Warn),
    }
    if cfg.Server.Mode == "debug" {
        gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
    }

    db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), gormCfg)
    if err != nil {
        return nil, fmt.Errorf("open postgres: %w", err)
    }

    sqlDB, err := db.DB()
    if err != nil {
        return nil, err
    }
    sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
    sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
    sqlDB.SetConnMaxLifetime(time.Hour)

    return db, nil
}

// InitRedis 连接 redis 并 ping 验证。
func InitRedis(cfg *config.Config) (*redis.Client, error) {
    client := redis.NewClient(&redis.Options{
        Addr:     cfg.Redis.Addr,
        Password: cfg.Redis.Password,
        DB:       cfg.Redis.DB,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil, fmt.Errorf("ping redis: %w", err)
    }
    return client, nil
}
