package reactive

import "log/slog"

// Config controls a Runtime.
type Config struct {
	// Logger receives reports of recovered callback failures and contract
	// violations. Default: slog.Default() with component=reactive.
	Logger *slog.Logger

	// Metrics receives runtime counters. Default: no-op.
	Metrics Metrics

	// ErrorHandler, if set, is called with every reported error after it
	// has been logged.
	ErrorHandler func(error)

	// VerifyPassive checks that passive observers only read registries
	// they already belong to, reporting ErrPassiveContract otherwise.
	// Intended for debug builds and tests.
	VerifyPassive bool

	// StrictPassive panics on passive contract violations instead of
	// reporting them. Implies VerifyPassive.
	StrictPassive bool
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the runtime metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithErrorHandler sets a callback for reported errors.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Config) {
		c.ErrorHandler = fn
	}
}

// WithPassiveVerification enables passive contract verification. When
// strict is true, violations panic.
func WithPassiveVerification(strict bool) Option {
	return func(c *Config) {
		c.VerifyPassive = true
		c.StrictPassive = strict
	}
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		Logger:  slog.Default().With("component", "reactive"),
		Metrics: NopMetrics{},
	}
}
