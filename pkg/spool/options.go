package spool

// Option configures spool behavior using the functional options pattern.
type Option func(*spoolOptions)

type spoolOptions struct {
	rolloverBytes int
	tempDir       string
}

// WithRolloverBytes sets the memory threshold past which the spool spills to
// a temporary file. Non-positive values fall back to DefaultRolloverBytes.
func WithRolloverBytes(n int) Option {
	return func(opts *spoolOptions) {
		if n > 0 {
			opts.rolloverBytes = n
		}
	}
}

// WithTempDir sets the directory for spill files. An empty value uses the
// system default temporary directory.
func WithTempDir(dir string) Option {
	return func(opts *spoolOptions) {
		opts.tempDir = dir
	}
}

func applyOptions(options ...Option) *spoolOptions {
	opts := &spoolOptions{
		rolloverBytes: DefaultRolloverBytes,
	}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
