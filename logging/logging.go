package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pdf-translator/config"
)

// New 根据配置创建 zap 日志。development 使用控制台格式，否则输出 JSON。
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := zap.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	zapConfig.Level.SetLevel(level)

	zapConfig.InitialFields = map[string]interface{}{
		"service": "pdf-translator",
	}

	return zapConfig.Build()
}
