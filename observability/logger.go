// Package observability builds the zap loggers used by the simulator binaries.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/ini.v1"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig holds the [Logger] section of the simulator config.
type LoggerConfig struct {
	Level       string `ini:"level"`
	Format      string `ini:"format"` // "console" or "json"
	ServiceName string `ini:"service_name"`
	AddSource   bool   `ini:"add_source"`

	// Optional rotating JSON log file.
	LogFile    string `ini:"log_file"`
	MaxSize    int    `ini:"max_size"` // megabytes
	MaxBackups int    `ini:"max_backups"`
	MaxAge     int    `ini:"max_age"` // days
	Compress   bool   `ini:"compress"`
}

// DefaultLoggerConfig returns console logging at info level.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "drivesim",
		MaxSize:     10,
		MaxBackups:  3,
		MaxAge:      7,
	}
}

// LoadConfig reads the [Logger] section from an INI file. A file without the
// section yields DefaultLoggerConfig.
func LoadConfig(filePath string) (LoggerConfig, error) {
	cfg := DefaultLoggerConfig()
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, filePath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	if !file.HasSection("Logger") {
		return cfg, nil
	}
	if err := file.Section("Logger").MapTo(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to map [Logger] section: %w", err)
	}
	return cfg, nil
}

// New builds a logger writing to console and, when LogFile is set, to a
// lumberjack-rotated JSON file as well.
func New(cfg LoggerConfig, console zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	cores := []zapcore.Core{zapcore.NewCore(getEncoder(cfg.Format), console, level)}

	if cfg.LogFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(getEncoder("json"), fileWriter, level))
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		options = append(options, zap.AddCaller())
	}
	logger := zap.New(zapcore.NewTee(cores...), options...)
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger, nil
}

// NewStderr is New with console output on a locked stderr, keeping stdout free
// for command output.
func NewStderr(cfg LoggerConfig) (*zap.Logger, error) {
	return New(cfg, zapcore.Lock(os.Stderr))
}

func getEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// Sync flushes logger, ignoring the errors some platforms return for terminals.
func Sync(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		msg := err.Error()
		if !strings.Contains(msg, "sync /dev/std") &&
			!strings.Contains(msg, "invalid argument") &&
			!strings.Contains(msg, "inappropriate ioctl") &&
			!strings.Contains(msg, "operation not supported") {
			fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
		}
	}
}
