package anomaly

const (
	DefaultContamination = 0.1
	DefaultTrees         = 100
	DefaultMaxSamples    = 256
)

// Options configures the isolation forest fitted on every Detect call.
type Options struct {
	Contamination float64
	Trees         int
	MaxSamples    int
	// Seed fixes the random source. When nil the seed is derived from the
	// batch contents.
	Seed *uint64
}

func defaultOptions() *Options {
	return &Options{
		Contamination: DefaultContamination,
		Trees:         DefaultTrees,
		MaxSamples:    DefaultMaxSamples,
	}
}

type Option func(*Options)

func WithContamination(c float64) Option {
	return func(opts *Options) {
		opts.Contamination = c
	}
}

func WithTrees(n int) Option {
	return func(opts *Options) {
		opts.Trees = n
	}
}

func WithMaxSamples(n int) Option {
	return func(opts *Options) {
		opts.MaxSamples = n
	}
}

func WithSeed(seed uint64) Option {
	return func(opts *Options) {
		opts.Seed = &seed
	}
}
