package sampler

import "time"

const (
	DefaultWindow       = time.Second
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultNameCacheTTL = 30 * time.Second
)

func defaultOptions() *Options {
	return &Options{
		Window:       DefaultWindow,
		RetryDelay:   DefaultRetryDelay,
		NameCacheTTL: DefaultNameCacheTTL,
	}
}

type Options struct {
	// Window is how long a system CPU reading blocks to average utilization.
	Window       time.Duration
	RetryDelay   time.Duration
	NameCacheTTL time.Duration
}

type Option func(*Options)

func WithWindow(d time.Duration) Option {
	return func(opts *Options) {
		opts.Window = d
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(opts *Options) {
		opts.RetryDelay = d
	}
}

func WithNameCacheTTL(d time.Duration) Option {
	return func(opts *Options) {
		opts.NameCacheTTL = d
	}
}
