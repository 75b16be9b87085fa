// Package logger builds the zap logger used across the runner: a console
// core plus timestamped run/error files under the configured log directory.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level string // DEBUG, INFO, WARN, ERROR
	Dir   string // log directory; empty disables file sinks
	JSON  bool   // additionally write a JSON stream next to the run log
	Quiet bool   // suppress the console core

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Files lists the file sinks a run writes to.
type Files struct {
	Run  string
	Err  string
	JSON string
}

// ParseLevel maps a level name to a zap level. Unknown names are an error;
// the accepted set matches the runtime configuration whitelist.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO", "":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// New builds the run logger. Each run gets its own timestamped files:
// stepflow_YYYYMMDD_HHMMSS.log, a matching .err file restricted to errors,
// and optionally a .json stream when cfg.JSON is set.
func New(cfg *Config) (*zap.Logger, *Files, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core
	files := &Files{}

	if !cfg.Quiet {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder := zapcore.NewConsoleEncoder(consoleConfig)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	if cfg.Dir != "" {
		stamp := time.Now().Format("20060102_150405")
		fileEncoder := zapcore.NewConsoleEncoder(encoderConfig)

		files.Run = filepath.Join(cfg.Dir, fmt.Sprintf("stepflow_%s.log", stamp))
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(newRotatingWriter(files.Run, cfg)), level))

		files.Err = filepath.Join(cfg.Dir, fmt.Sprintf("stepflow_%s.err", stamp))
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(newRotatingWriter(files.Err, cfg)), zapcore.ErrorLevel))

		if cfg.JSON {
			files.JSON = filepath.Join(cfg.Dir, fmt.Sprintf("stepflow_%s.json", stamp))
			jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
			cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(newRotatingWriter(files.JSON, cfg)), level))
		}
	}

	if len(cores) == 0 {
		return zap.NewNop(), files, nil
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core), files, nil
}

func newRotatingWriter(path string, cfg *Config) *lumberjack.Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
