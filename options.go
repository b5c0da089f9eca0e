package metatasks

import (
	"context"
	"log/slog"
	"time"
)

// Option configures an Engine.
type Option func(*Engine) error

// Storer is the minimal store interface held by the Engine.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds all
// subsystem stores.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Engine is the central coordinator holding shared configuration, the
// structured logger, and the persistence backend. Create one with New()
// and functional options, then wire the state-machine core with
// executor.Build().
type Engine struct {
	config Config
	logger *slog.Logger
	store  Storer
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Store returns the engine's store.
func (e *Engine) Store() Storer { return e.store }

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config { return e.config }

// Close releases the persistence backend.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// WithLogger sets the structured logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the engine.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(e *Engine) error {
		e.store = s
		return nil
	}
}

// WithBookingTimeout overrides the booking-availability check timeout.
func WithBookingTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.BookingTimeout = d
		return nil
	}
}
