package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	base    = zerolog.Nop()
	service string
)

// InitLogging initializes logging.
// level is one of trace|debug|info|warn|error, format is json|console.
// serviceName, when set, is attached to every line as "service".
func InitLogging(level, format, serviceName string) {
	service = serviceName
	SetOutput(os.Stdout, level, format)
}

// SetOutput points the logger at w. Tests use it to capture or silence output.
func SetOutput(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.ToLower(format) == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	base = ctx.Logger()
}

// Logger returns the structured logger for callers that want fields.
func Logger() *zerolog.Logger {
	return &base
}

// Debugf logs debug level messages
func Debugf(format string, v ...interface{}) {
	base.Debug().Msg(fmt.Sprintf(format, v...))
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	base.Info().Msg(fmt.Sprintf(format, v...))
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	base.Warn().Msg(fmt.Sprintf(format, v...))
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	base.Error().Msg(fmt.Sprintf(format, v...))
}

// Redact keeps a short prefix of an identifier for log lines.
func Redact(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}
