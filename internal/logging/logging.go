package logging

import (
	"context"
	"os"
	"strings"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	auzerolog "github.com/StephanHCB/go-autumn-logging-zerolog"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ApplicationName = "reg-payment-mia-adapter"

type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})

	// expected to terminate the process
	Fatal(format string, v ...interface{})
}

type loggingWrapper struct {
	logger *zerolog.Logger
}

func (l *loggingWrapper) Debug(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

func (l *loggingWrapper) Info(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

func (l *loggingWrapper) Warn(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

func (l *loggingWrapper) Error(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

// expected to terminate the process
func (l *loggingWrapper) Fatal(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

// context key with a separate type, so no other package has a chance of accessing it
type key int

// the value actually doesn't matter, the type alone will guarantee no package gets at this context value
const (
	LoggerKey key = iota
	RequestIdKey
)

const defaultRequestId = "00000000"

// Setup configures the global log level and routes go-autumn-logging (used by the
// rest client request logging) through zerolog as well.
func Setup(severity string, json bool) {
	aulogging.RequestIdRetriever = RequestIdFromContext
	if json {
		auzerolog.SetupJsonLogging(ApplicationName)
	} else {
		aulogging.DefaultRequestIdValue = defaultRequestId
		auzerolog.SetupPlaintextLogging()
	}

	zerolog.SetGlobalLevel(parseSeverity(severity))
}

func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultRequestId
	}
	if reqID, ok := ctx.Value(RequestIdKey).(string); ok {
		return reqID
	}
	return "ffffffff"
}

// NewRequestId returns a fresh id in the 8 hex digit format callers may also send in X-Request-Id.
func NewRequestId() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "ffffffff"
	}
	return id.String()[:8]
}

func parseSeverity(severity string) zerolog.Level {
	switch strings.ToUpper(severity) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// CreateContextWithLoggerForRequestId places a logger tagged with the request id into the context.
func CreateContextWithLoggerForRequestId(ctx context.Context, requestId string) context.Context {
	ctx = context.WithValue(ctx, RequestIdKey, requestId)
	return context.WithValue(ctx, LoggerKey, newLoggerWithRequestId(requestId))
}

// WithRequestID returns the context logger, or a fresh one tagged with reqID if the context has none.
func WithRequestID(ctx context.Context, reqID string) Logger {
	if logger, ok := ctx.Value(LoggerKey).(Logger); ok {
		return logger
	}
	return newLoggerWithRequestId(reqID)
}

// you should only use this when your code really does not belong to request processing.
// otherwise be a good citizen and do pass down the context, so log output can be associated with
// the request being processed!
func NoCtx() Logger {
	return newLoggerWithRequestId(defaultRequestId)
}

func LoggerFromContext(ctx context.Context) Logger {
	if ctx == nil {
		return NoCtx()
	}

	logger, ok := ctx.Value(LoggerKey).(Logger)
	if !ok {
		return NewLogger()
	}

	return logger
}

func NewLogger() Logger {
	logger := zerolog.New(os.Stdout).
		With().
		Str("App", ApplicationName).
		Timestamp().
		Logger()

	return &loggingWrapper{
		logger: &logger,
	}
}

func newLoggerWithRequestId(requestId string) Logger {
	logger := zerolog.New(os.Stdout).
		With().
		Str("App", ApplicationName).
		Str("RequestId", requestId).
		Timestamp().
		Logger()

	return &loggingWrapper{
		logger: &logger,
	}
}

func NewNoopLogger() Logger {
	return &noopLogger{}
}

type noopLogger struct {
}

func (l *noopLogger) Debug(format string, v ...interface{}) {
}

func (l *noopLogger) Info(format string, v ...interface{}) {
}

func (l *noopLogger) Warn(format string, v ...interface{}) {
}

func (l *noopLogger) Error(format string, v ...interface{}) {
}

// expected to terminate the process
func (l *noopLogger) Fatal(format string, v ...interface{}) {
}
