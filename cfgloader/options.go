package cfgloader

// Options holds configuration options for Load and MustLoad.
type Options struct {
	// Silent disables logging of the loaded config.
	Silent bool

	// Dir is the directory MustLoad looks for ${ENVIRONMENT}.yaml in.
	Dir string
}

// Option is a functional option for configuring loading behavior.
type Option func(*Options)

// WithSilent disables config logging.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithDir overrides the default "./config" directory used by MustLoad.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

func buildOptions(opts []Option) Options {
	o := Options{Dir: defaultDir}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
