package runtime

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleResult(path string) DetectionResult {
	return DetectionResult{
		Runtimes: []Runtime{{
			ID:      RuntimeID(KindDocker, path),
			Kind:    KindDocker,
			Path:    path,
			Version: NewVersion(24, 0, 7),
			Status:  StatusRunning,
		}},
		DurationMs: 12,
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := NewCache(time.Minute)
	r := sampleResult("/usr/bin/docker")

	c.Set(KindDocker, r)

	got, ok := c.Get(KindDocker)
	if !ok {
		t.Fatal("Get after Set returned nothing")
	}
	if len(got.Runtimes) != 1 || got.Runtimes[0].ID != r.Runtimes[0].ID {
		t.Errorf("Get = %+v, want %+v", got, r)
	}
	if _, ok := c.Get(KindPodman); ok {
		t.Error("Get for an unset kind should miss")
	}
}

func TestCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(10 * time.Second)
	c.now = clock.Now

	c.Set(KindDocker, sampleResult("/usr/bin/docker"))

	clock.Advance(10*time.Second - time.Nanosecond)
	if _, ok := c.Get(KindDocker); !ok {
		t.Error("entry should still be fresh just before expiry")
	}

	// now == expiresAt is already expired.
	clock.Advance(time.Nanosecond)
	if _, ok := c.Get(KindDocker); ok {
		t.Error("entry should be expired at exactly its expiry instant")
	}

	c.Set(KindDocker, sampleResult("/usr/local/bin/docker"))
	got, ok := c.Get(KindDocker)
	if !ok || got.Runtimes[0].Path != "/usr/local/bin/docker" {
		t.Errorf("Set should overwrite an expired entry, got %+v, %v", got, ok)
	}
}

func TestCache_ExpiryRealClock(t *testing.T) {
	c := NewCache(20 * time.Millisecond)
	c.Set(KindPodman, sampleResult("/usr/bin/podman"))

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get(KindPodman); ok {
		t.Error("entry should expire after the TTL")
	}
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(time.Hour)
	c.Set(KindDocker, sampleResult("/usr/bin/docker"))
	c.Set(KindPodman, sampleResult("/usr/bin/podman"))

	c.Clear(KindDocker)
	if _, ok := c.Get(KindDocker); ok {
		t.Error("cleared kind should miss")
	}
	if _, ok := c.Get(KindPodman); !ok {
		t.Error("other kinds should survive Clear")
	}

	c.ClearAll()
	for _, k := range Kinds() {
		if _, ok := c.Get(k); ok {
			t.Errorf("%s should miss after ClearAll", k)
		}
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(time.Hour)
	r := sampleResult("/usr/bin/docker")
	c.Set(KindDocker, r)

	r.Runtimes[0].Status = StatusStopped
	got, _ := c.Get(KindDocker)
	if got.Runtimes[0].Status != StatusRunning {
		t.Error("mutating the stored value after Set leaked into the cache")
	}

	got.Runtimes[0].Status = StatusError
	again, _ := c.Get(KindDocker)
	if again.Runtimes[0].Status != StatusRunning {
		t.Error("mutating a Get result leaked into the cache")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(time.Hour)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set(KindDocker, sampleResult("/usr/bin/docker"))
				if j%50 == 0 {
					c.ClearAll()
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if r, ok := c.Get(KindDocker); ok && len(r.Runtimes) != 1 {
					t.Errorf("torn read: %+v", r)
				}
			}
		}()
	}
	wg.Wait()
}
