package polling

import (
	"math/rand/v2"
	"sync"
)

// Backoff decides whether a failing runtime is probed on the current tick.
type Backoff interface {
	// Skip is called once per runtime per tick with its consecutive
	// failure count. It is only called from the polling goroutine.
	Skip(runtimeID string, failures int) bool
}

// BackoffFunc adapts a function to Backoff.
type BackoffFunc func(runtimeID string, failures int) bool

func (f BackoffFunc) Skip(runtimeID string, failures int) bool {
	return f(runtimeID, failures)
}

// factor is 2^min(failures, MaxFailures).
func factor(failures int) uint64 {
	return uint64(1) << min(failures, MaxFailures)
}

// RandomBackoff skips a runtime with n failures with probability
// (2^n-1)/2^n, so the expected probe rate halves with every failure.
type RandomBackoff struct {
	// uint64n returns a value in [0, n). Defaults to math/rand/v2.
	uint64n func(n uint64) uint64
}

// NewRandomBackoff creates a RandomBackoff using the global random source.
func NewRandomBackoff() *RandomBackoff {
	return &RandomBackoff{uint64n: rand.Uint64N}
}

func (b *RandomBackoff) Skip(_ string, failures int) bool {
	if failures <= 0 {
		return false
	}
	return b.uint64n(factor(failures)) != 0
}

// TickBackoff probes a runtime with n failures on exactly every 2^n-th
// tick, giving the same average rate as RandomBackoff without variance.
type TickBackoff struct {
	mu     sync.Mutex
	waited map[string]uint64
}

// NewTickBackoff creates a TickBackoff.
func NewTickBackoff() *TickBackoff {
	return &TickBackoff{waited: make(map[string]uint64)}
}

func (b *TickBackoff) Skip(runtimeID string, failures int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if failures <= 0 {
		delete(b.waited, runtimeID)
		return false
	}
	n := b.waited[runtimeID] + 1
	if n >= factor(failures) {
		delete(b.waited, runtimeID)
		return false
	}
	b.waited[runtimeID] = n
	return true
}

// ParseBackoff returns the strategy for a settings name: "random" (or
// empty) or "deterministic".
func ParseBackoff(name string) (Backoff, bool) {
	switch name {
	case "", "random":
		return NewRandomBackoff(), true
	case "deterministic":
		return NewTickBackoff(), true
	default:
		return nil, false
	}
}
