package cache

type options struct {
	synchronous bool
}

// Option configures a ProfileCache.
type Option func(*options)

// WithSynchronousWrites waits for every Set to be applied before returning.
func WithSynchronousWrites() Option {
	return func(o *options) { o.synchronous = true }
}
