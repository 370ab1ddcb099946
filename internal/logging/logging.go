package logging

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and sinks of a logger.
type Config struct {
	Level string
	// Path enables an hourly rotated file sink at Path.%Y%m%d%H.
	Path   string
	MaxAge time.Duration
	// Console is nil for stdout; set it to redirect console output.
	Console io.Writer
}

// ParseLevel maps debug/info/warn/error to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, errors.Errorf("unknown log level %q", s)
	}
}

// New builds a named console logger, teeing into a rotated file when
// cfg.Path is set.
func New(name string, cfg Config) (*zap.SugaredLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	enabled := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level
	})

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	syncers := []zapcore.WriteSyncer{zapcore.AddSync(console)}

	if cfg.Path != "" {
		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = 24 * time.Hour
		}
		rotator, err := rotatelogs.New(
			cfg.Path+".%Y%m%d%H",
			rotatelogs.WithRotationTime(time.Hour),
			rotatelogs.WithMaxAge(maxAge),
		)
		if err != nil {
			return nil, errors.Wrap(err, "rotate logs")
		}
		syncers = append(syncers, zapcore.AddSync(rotator))
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "line",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + level.CapitalString() + "]")
		},
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
		},
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		enabled,
	)
	return zap.New(core, zap.AddCaller()).Named(name).Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
