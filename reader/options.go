package reader

import (
	"log/slog"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/resolver"
)

// Config holds the settings a Document is opened with.
type Config struct {
	// Strict surfaces every deviation from the format as an error instead
	// of a warning followed by repair.
	Strict bool
	// Password is tried as the user password, then the owner password.
	Password string
	// Logger receives warnings and debug output. Nil discards them.
	Logger *slog.Logger
	// StartXRefWindow is the byte radius searched around a wrong
	// startxref pointer.
	StartXRefWindow int
	// MaxDepth bounds nesting for ResolveDeep.
	MaxDepth int
}

// DefaultConfig returns the settings used when no options are given.
func DefaultConfig() Config {
	return Config{
		StartXRefWindow: core.DefaultStartXRefWindow,
		MaxDepth:        resolver.DefaultMaxDepth,
	}
}

// Option configures a Document.
type Option func(*Config)

// WithStrict selects strict (true) or lenient (false, the default) parsing.
func WithStrict(strict bool) Option {
	return func(c *Config) {
		c.Strict = strict
	}
}

// WithPassword sets the password used for encrypted documents.
func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithLogger sets the logger warnings are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStartXRefWindow sets how far around a wrong startxref pointer the
// reader looks for the xref section.
func WithStartXRefWindow(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.StartXRefWindow = n
		}
	}
}

// WithMaxDepth sets the nesting limit for ResolveDeep.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		if depth > 0 {
			c.MaxDepth = depth
		}
	}
}
