package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	base        zerolog.Logger
	environment = "development"
)

func init() {
	Init(os.Getenv("ENVIRONMENT"))
}

// Init rebuilds the package logger. Development gets console output and debug
// level, anything else gets JSON lines at info level.
func Init(env string) {
	if env != "" {
		environment = env
	}

	var w io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if environment == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", "schoolmsg").
		Logger()
}

// SetOutput redirects all log lines to w as JSON. Used by tests.
func SetOutput(w io.Writer) {
	base = base.Output(w)
}

func Get() *zerolog.Logger {
	return &base
}

func Info(format string, v ...interface{}) {
	base.Info().Msg(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	base.Error().Msg(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	base.Debug().Msg(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	base.Warn().Msg(fmt.Sprintf(format, v...))
}

// Fatal logs and exits with status 1.
func Fatal(format string, v ...interface{}) {
	base.Fatal().Msg(fmt.Sprintf(format, v...))
}

// Authz records a rejected authorization decision. These lines carry
// event=authz_denied so they can be told apart from ordinary failures.
func Authz(uid, operation, reason string) {
	base.Warn().
		Str("event", "authz_denied").
		Str("uid", uid).
		Str("operation", operation).
		Msg(reason)
}
