package ftsload

import "net/http"

// Option configures a Pipeline.
type Option interface {
	apply(*Pipeline) error
}

type optionFunc func(*Pipeline) error

func (f optionFunc) apply(p *Pipeline) error {
	return f(p)
}

// WithPrettyLogging configures the Pipeline to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(p *Pipeline) error {
		p.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets the log level. Accepts zerolog level names such as
// "debug", "info" and "warn".
func WithLogLevel(level string) Option {
	return optionFunc(func(p *Pipeline) error {
		p.logLevel = level
		return nil
	})
}

// WithBatchSize overrides the number of records committed per transaction.
func WithBatchSize(n int) Option {
	return optionFunc(func(p *Pipeline) error {
		p.batchSize = n
		return nil
	})
}

// WithYears limits the run to the given inclusive year range.
func WithYears(start, end int) Option {
	return optionFunc(func(p *Pipeline) error {
		p.startYear = start
		p.endYear = end
		return nil
	})
}

// WithBaseURL overrides the FTS download endpoint.
func WithBaseURL(base string) Option {
	return optionFunc(func(p *Pipeline) error {
		p.baseURL = base
		return nil
	})
}

// WithHTTPClient sets the client used to download datasets.
func WithHTTPClient(c *http.Client) Option {
	return optionFunc(func(p *Pipeline) error {
		p.fetch = newHTTPFetcher(c)
		return nil
	})
}

// WithNotifier sets the notifier invoked with the run's result.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(p *Pipeline) error {
		p.notifier = n
		return nil
	})
}
