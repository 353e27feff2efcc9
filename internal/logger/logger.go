package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a config string to a slog level. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger tagged with the component name. Package-level
// loggers created before Init keep pointing at the handler that was default at the
// time, so it resolves the default lazily.
func ForComponent(component string) *Component {
	return &Component{name: component}
}

type Component struct {
	name string
}

func (c *Component) logger() *slog.Logger {
	return slog.Default().With("component", c.name)
}

func (c *Component) Debug(msg string, args ...any) { c.logger().Debug(msg, args...) }
func (c *Component) Info(msg string, args ...any)  { c.logger().Info(msg, args...) }
func (c *Component) Warn(msg string, args ...any)  { c.logger().Warn(msg, args...) }
func (c *Component) Error(msg string, args ...any) { c.logger().Error(msg, args...) }
