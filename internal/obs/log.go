package obs

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Fields is structured context attached to a log line.
type Fields map[string]any

// LogConfig configures NewLogger.
type LogConfig struct {
	Env     string    // "local" pretty-prints; anything else emits JSON lines
	Service string    // service field on every line
	Level   string    // debug, info, warning, error, critical
	Output  io.Writer // defaults to stdout
}

// Logger is the leveled logging sink used across the service.
// Never pass secret values or row contents as fields.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger builds a Logger. Local environments get a console writer, all
// others a single JSON object per line.
func NewLogger(cfg LogConfig) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Output != nil {
		w = cfg.Output
	}
	if cfg.Env == "local" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: cfg.Output != nil}
	}
	service := cfg.Service
	if service == "" {
		service = "unknown-service"
	}
	env := cfg.Env
	if env == "" {
		env = "local"
	}
	zl := zerolog.New(w).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", service).
		Str("environment", env).
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warning", "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Critical logs at the highest severity. It never exits the process.
func (l *Logger) Critical(msg string, fields ...Fields) {
	l.emit(l.zl.WithLevel(zerolog.FatalLevel).Str("severity", "critical"), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) Warning(msg string, fields ...Fields) { l.emit(l.zl.Warn(), msg, fields) }

func (l *Logger) Info(msg string, fields ...Fields) { l.emit(l.zl.Info(), msg, fields) }

func (l *Logger) Debug(msg string, fields ...Fields) { l.emit(l.zl.Debug(), msg, fields) }

func (l *Logger) emit(ev *zerolog.Event, msg string, fields []Fields) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		if len(f) > 0 {
			ev = ev.Fields(map[string]any(f))
		}
	}
	ev.Msg(msg)
}
