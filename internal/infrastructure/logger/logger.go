package logger

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskmaster/taskboard/internal/infrastructure/config"
)

// Logger wraps zap.SugaredLogger with the task board's structured helpers
type Logger struct {
	*zap.SugaredLogger
}

// New builds a logger from cfg. Console format is meant for people at a
// terminal, json for the API server behind a log shipper.
func New(cfg config.LoggerConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.DisableStacktrace = true
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths, zapConfig.ErrorOutputPaths = outputPaths(cfg)

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// stderr by default so log lines never mix with command output on stdout
func outputPaths(cfg config.LoggerConfig) (out, errOut []string) {
	switch {
	case cfg.Output == "file" && cfg.Filename != "":
		return []string{cfg.Filename}, []string{cfg.Filename}
	case cfg.Output == "stdout":
		return []string{"stdout"}, []string{"stderr"}
	default:
		return []string{"stderr"}, []string{"stderr"}
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) with(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

func (l *Logger) WithError(err error) *Logger {
	return l.with("error", err.Error())
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithComponent tags every entry with the subsystem that wrote it
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// LogHTTPRequest records one request served by the API server
func (l *Logger) LogHTTPRequest(method, path, userAgent, ip string, statusCode int, duration float64) {
	fields := []interface{}{
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration,
		"user_agent", userAgent,
		"ip", ip,
	}
	switch {
	case statusCode >= 500:
		l.Errorw("HTTP request", fields...)
	case statusCode >= 400:
		l.Warnw("HTTP request", fields...)
	default:
		l.Infow("HTTP request", fields...)
	}
}

// LogAPICall records an outgoing request made by the API client
func (l *Logger) LogAPICall(method, path string, statusCode int, duration float64, err error) {
	fields := []interface{}{
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration,
	}
	if err != nil {
		l.Warnw("API call failed", append(fields, "error", err.Error())...)
		return
	}
	l.Debugw("API call", fields...)
}

// LogUserAction records a state change made by an authenticated user
func (l *Logger) LogUserAction(userID int, action string, metadata map[string]interface{}) {
	l.Infow("User action", appendSorted([]interface{}{"user_id", userID, "action", action}, metadata)...)
}

// LogSecurityEvent records rejected credentials and denied requests
func (l *Logger) LogSecurityEvent(event string, userID int, ip string, details map[string]interface{}) {
	l.Warnw("Security event", appendSorted([]interface{}{"security_event", event, "user_id", userID, "ip", ip}, details)...)
}

// appendSorted adds m to fields in key order so entries are stable
func appendSorted(fields []interface{}, m map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, m[k])
	}
	return fields
}

// Close flushes any buffered log entries
func (l *Logger) Close() error {
	return l.SugaredLogger.Sync()
}
