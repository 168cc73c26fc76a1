// Package logger builds the zap logger shared by the CLI, the gateway client and the dev gateway.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Conf holds logger options
type Conf struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Output string // stdout or stderr
	JSON   bool   // structured output for production
}

// New builds a sugared logger from conf.
func New(conf Conf) (*zap.SugaredLogger, error) {
	var sink zapcore.WriteSyncer
	switch conf.Output {
	case "", "stderr":
		sink = zapcore.AddSync(os.Stderr)
	case "stdout":
		sink = zapcore.AddSync(os.Stdout)
	default:
		return nil, fmt.Errorf("invalid log output %q", conf.Output)
	}

	core := zapcore.NewCore(encoder(conf.JSON), sink, ParseLevel(conf.Level))
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}

// Nop returns a logger that discards everything. Library types default to it.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func encoder(json bool) zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "time"
	cfg.LevelKey = "level"
	cfg.CallerKey = "caller"
	cfg.MessageKey = "msg"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	if json {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// ParseLevel converts a case-insensitive level name; unknown names mean INFO.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
