package dedupe

// Option applies a configuration option to the deduper.
type Option func(*windowDeduper)

// WithWindow sets how many recent IDs are remembered. A non-positive
// window remembers every ID for the lifetime of the deduper.
func WithWindow(n int) Option {
	return func(d *windowDeduper) {
		d.window = n
	}
}
