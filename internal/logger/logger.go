package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger fields
const (
	SERVICE = "svc"
	ENV     = "env"
	EVENT   = "event"
)

type Options struct {
	Service string
	Env     string
	Level   string
	Pretty  bool
	Out     io.Writer
}

// New builds the application logger and installs it as the global zerolog
// logger.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str(SERVICE, opts.Service).
		Str(ENV, opts.Env).
		Logger()

	log.Logger = l
	return l
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GinMiddleware logs one line per request in place of gin.Logger().
func GinMiddleware(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
