package syncer

// defaultWorkers caps probe/fetch parallelism. There is no benefit to
// unbounded parallelism against third-party services.
const defaultWorkers = 5

// options holds the configurable behavior of a Syncer.
type options struct {
	removeMissing bool
	permissions   int
	workers       int
}

// Option configures a Syncer.
type Option func(*options)

// newOptions creates options with defaults applied.
func newOptions(opts ...Option) *options {
	o := &options{
		removeMissing: true,
		permissions:   0,
		workers:       defaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRemoveMissing controls whether accounts absent from every media
// server are removed from the request service.
func WithRemoveMissing(remove bool) Option {
	return func(o *options) {
		o.removeMissing = remove
	}
}

// WithPermissions sets the permission bits applied to newly created
// accounts.
func WithPermissions(permissions int) Option {
	return func(o *options) {
		o.permissions = permissions
	}
}

// WithWorkers bounds probe and fetch parallelism.
func WithWorkers(workers int) Option {
	return func(o *options) {
		if workers > 0 {
			o.workers = workers
		}
	}
}
