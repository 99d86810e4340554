package telemetry

import (
	"log"

	"arena/logging"
)

// Logger is the printf-style text log used by the server and client plumbing.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. A nil logger discards output.
func WrapLogger(logger *log.Logger) Logger {
	return loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l loggerAdapter) Printf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Nop returns a Logger that drops everything.
func Nop() Logger {
	return LoggerFunc(func(string, ...any) {})
}

// Metrics is the counter surface exposed to rooms and sessions.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts shared logging counters into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m metricsAdapter) Add(key string, delta uint64) {
	m.metrics.TelemetryAdd(key, delta)
}

func (m metricsAdapter) Store(key string, value uint64) {
	m.metrics.TelemetryStore(key, value)
}

// Counter names shared by the room and the diagnostics endpoint.
const (
	MetricTicks           = "ticks_total"
	MetricTickOverruns    = "tick_overruns_total"
	MetricRuleErrors      = "rule_errors_total"
	MetricInputsApplied   = "inputs_applied_total"
	MetricInputsDropped   = "inputs_dropped_total"
	MetricCommandsDropped = "commands_dropped_total"
	MetricBytesSent       = "bytes_sent_total"
	MetricPlayers         = "players"
	MetricConnections     = "connections"
)
