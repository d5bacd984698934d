package logger

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// 全局 logger，Init 之前为 no-op，避免 nil 判断散落各处。
var log = zap.NewNop()

// Init 初始化全局 logger。level: debug/info/warn/error；json 控制输出编码。
func Init(level string, json bool) error {
    var cfg zap.Config
    if json {
        cfg = zap.NewProductionConfig()
    } else {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }

    lv, err := zapcore.ParseLevel(level)
    if err != nil {
        lv = zapcore.InfoLevel
    }
    cfg.Level = zap.NewAtomicLevelAt(lv)

    l, err := cfg.Build(zap.AddCallerSkip(1))
    if err != nil {
        return err
    }
    log = l
    return nil
}

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { log.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { log.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }

// L 返回底层 *zap.Logger，供需要子 logger 的场景使用。
func L() *zap.Logger { return log }

// Sync 进程退出前刷新缓冲。
func Sync() { _ = log.Sync() }
