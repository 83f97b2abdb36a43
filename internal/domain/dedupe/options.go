package dedupe

// Option applies a configuration option to the deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many IDs are remembered.
// If maxSize > 0 the oldest IDs are forgotten first once the limit is hit.
// If maxSize <= 0 every ID is kept.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
