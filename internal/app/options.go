package app

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"injtracker/internal/metrics"
)

// Clock returns the current instant. Services never call time.Now directly.
type Clock func() time.Time

// Option customizes a service.
type Option func(*options)

type options struct {
	now     Clock
	newID   func() string
	log     *zap.Logger
	metrics *metrics.Metrics
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		newID: uuid.NewString,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the wall clock.
func WithClock(now Clock) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
