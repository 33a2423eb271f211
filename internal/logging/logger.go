package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"consult-gateway/internal/config"
)

// New 按配置创建 JSON 日志器。filename 为空时写 stderr, 否则由 lumberjack 按大小轮转。
func New(cfg config.LogConfig) *zap.Logger {
	return zap.New(newCore(cfg, writeSyncer(cfg)), zap.AddCaller())
}

func writeSyncer(cfg config.LogConfig) zapcore.WriteSyncer {
	if cfg.Filename == "" {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	})
}

func newCore(cfg config.LogConfig, ws zapcore.WriteSyncer) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zap.DebugLevel // 默认
	}

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		ws,
		zap.NewAtomicLevelAt(level),
	)
}
