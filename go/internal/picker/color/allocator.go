package color

const (
	DefaultMinLuminance = 60.0
	DefaultMinDistance  = 120
	DefaultMaxAttempts  = 100
)

// Rand is the randomness the allocator needs. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Options tune the allocator's rejection rules.
type Options struct {
	MinLuminance float64 `yaml:"min_luminance"`
	MinDistance  int     `yaml:"min_distance"`
	MaxAttempts  int     `yaml:"max_attempts"`
}

// DefaultOptions returns the thresholds the game ships with.
func DefaultOptions() Options {
	return Options{
		MinLuminance: DefaultMinLuminance,
		MinDistance:  DefaultMinDistance,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// Allocator hands out contestant colors that are neither too dark nor too
// close to the colors already on screen.
type Allocator struct {
	rng  Rand
	opts Options
}

// NewAllocator creates an allocator drawing from rng.
func NewAllocator(rng Rand, opts Options) *Allocator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Allocator{rng: rng, opts: opts}
}

// Allocate samples random colors until one clears both the luminance floor and
// the distance threshold against every color in existing. When the attempt
// budget runs out the last candidate is returned as is.
func (a *Allocator) Allocate(existing []RGB) RGB {
	var candidate RGB
	for attempt := 0; attempt < a.opts.MaxAttempts; attempt++ {
		candidate = RGB{
			R: uint8(a.rng.Intn(256)),
			G: uint8(a.rng.Intn(256)),
			B: uint8(a.rng.Intn(256)),
		}
		if a.Acceptable(candidate, existing) {
			return candidate
		}
	}
	return candidate
}

// Acceptable reports whether c passes the allocator's rules against existing.
func (a *Allocator) Acceptable(c RGB, existing []RGB) bool {
	if c.Luminance() < a.opts.MinLuminance {
		return false
	}
	for _, other := range existing {
		if Distance(c, other) < a.opts.MinDistance {
			return false
		}
	}
	return true
}
