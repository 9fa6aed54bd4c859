package registry

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithOnPut installs the hook run after every Put, typically the compiler.
func WithOnPut(hook Hook) Option {
	return func(r *Registry) {
		r.onPut = hook
	}
}
