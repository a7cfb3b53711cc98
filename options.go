package covertree

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/covertree/internal/tree"
	"github.com/hupe1980/covertree/persistence"
)

// DefaultMaxAnomalyWarnings is the number of anomaly warnings logged per
// batch before they are folded into one summary line.
const DefaultMaxAnomalyWarnings = 3

type options struct {
	base               float64
	workers            int
	maxAnomalyWarnings int
	compression        persistence.Compression
	metricsCollector   MetricsCollector
	logger             *Logger
}

// Option configures Build, Decode and Load.
type Option func(*options)

// WithBase sets the expansion base of covering radii. It must be finite and
// at least 2. Decode and Load take the base from the snapshot and ignore it.
func WithBase(base float64) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithWorkers bounds the goroutines a batch query fans out to.
// The default is runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMaxAnomalyWarnings caps the anomaly warnings logged per batch query.
// Zero logs only the summary line.
func WithMaxAnomalyWarnings(n int) Option {
	return func(o *options) {
		o.maxAnomalyWarnings = n
	}
}

// WithCompression selects the body compression of MarshalBinary and Save.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &covertree.BasicMetricsCollector{}
//	t, _ := covertree.Build(points, -1, covertree.WithMetricsCollector(metrics))
//	// ... use t ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := covertree.NewJSONLogger(slog.LevelInfo)
//	t, _ := covertree.Build(points, -1, covertree.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) (options, error) {
	o := options{
		base:               tree.DefaultBase,
		workers:            runtime.GOMAXPROCS(0),
		maxAnomalyWarnings: DefaultMaxAnomalyWarnings,
		compression:        persistence.CompressionNone,
		metricsCollector:   NoopMetricsCollector{},
		logger:             NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.workers < 1 {
		return o, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidInput, o.workers)
	}
	if o.maxAnomalyWarnings < 0 {
		return o, fmt.Errorf("%w: max anomaly warnings must not be negative, got %d", ErrInvalidInput, o.maxAnomalyWarnings)
	}
	if !o.compression.Valid() {
		return o, fmt.Errorf("%w: unknown compression %d", ErrInvalidInput, o.compression)
	}
	return o, nil
}
