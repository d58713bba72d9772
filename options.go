package pdfreader

import (
	"log/slog"

	"github.com/tsawler/pdfreader/reader"
)

// inspectOptions holds the settings an Inspector opens its file with.
type inspectOptions struct {
	strict   bool
	password string
	logger   *slog.Logger
	window   int // 0 keeps the reader default
}

func defaultOptions() inspectOptions {
	return inspectOptions{}
}

// readerOptions converts the settings to reader options.
func (o inspectOptions) readerOptions() []reader.Option {
	opts := []reader.Option{reader.WithStrict(o.strict)}
	if o.password != "" {
		opts = append(opts, reader.WithPassword(o.password))
	}
	if o.logger != nil {
		opts = append(opts, reader.WithLogger(o.logger))
	}
	if o.window > 0 {
		opts = append(opts, reader.WithStartXRefWindow(o.window))
	}
	return opts
}
