package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLocalStore_GetSetDelete(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(clock.Now)

	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) ok = true, want false")
	}

	s.Set("k", []byte("v1"), time.Minute)
	got, ok := s.Get("k")
	if !ok || !bytes.Equal(got, []byte("v1")) {
		t.Errorf("Get(k) = %q, %v, want %q, true", got, ok, "v1")
	}

	s.Set("k", []byte("v2"), time.Minute)
	got, _ = s.Get("k")
	if !bytes.Equal(got, []byte("v2")) {
		t.Errorf("Get(k) after overwrite = %q, want %q", got, "v2")
	}

	if !s.Delete("k") {
		t.Error("Delete(k) = false, want true")
	}
	if s.Delete("k") {
		t.Error("second Delete(k) = true, want false")
	}
	if _, ok := s.Get("k"); ok {
		t.Error("Get(k) after Delete ok = true, want false")
	}
}

func TestLocalStore_GetReturnsCopy(t *testing.T) {
	s := NewLocalStore(nil)
	s.Set("k", []byte("value"), time.Minute)

	got, _ := s.Get("k")
	got[0] = 'X'

	again, _ := s.Get("k")
	if string(again) != "value" {
		t.Errorf("stored value mutated through Get result: %q", again)
	}
}

func TestLocalStore_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(clock.Now)

	s.Set("k", []byte("v"), 5*time.Second)
	clock.Advance(5 * time.Second)

	if _, ok := s.Get("k"); ok {
		t.Error("Get at expiresAt ok = true, want false")
	}
	if _, ok := s.Entry("k"); ok {
		t.Error("expired entry still present after Get")
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestLocalStore_NonPositiveTTL(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		t.Run(ttl.String(), func(t *testing.T) {
			s := NewLocalStore(newFakeClock().Now)
			s.Set("k", []byte("v"), ttl)

			if _, ok := s.Get("k"); ok {
				t.Errorf("Get after Set(ttl=%v) ok = true, want false", ttl)
			}
		})
	}
}

func TestLocalStore_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(clock.Now)

	s.Set("short-1", []byte("a"), time.Second)
	s.Set("short-2", []byte("b"), time.Second)
	s.Set("long", []byte("c"), time.Hour)
	clock.Advance(2 * time.Second)

	if got := s.SweepExpired(); got != 2 {
		t.Errorf("SweepExpired() = %d, want 2", got)
	}
	if got := s.Keys(); len(got) != 1 || got[0] != "long" {
		t.Errorf("Keys() = %v, want [long]", got)
	}
	if got := s.SweepExpired(); got != 0 {
		t.Errorf("second SweepExpired() = %d, want 0", got)
	}
}

func TestLocalStore_SweepCountsLazyRemovals(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(clock.Now)

	s.Set("a", []byte("1"), time.Second)
	s.Set("b", []byte("2"), time.Second)
	clock.Advance(2 * time.Second)

	s.Get("a")

	if got := s.SweepExpired(); got != 2 {
		t.Errorf("SweepExpired() = %d, want 2", got)
	}
	if got := s.SweepExpired(); got != 0 {
		t.Errorf("second SweepExpired() = %d, want 0", got)
	}
}

func TestLocalStore_Clear(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(clock.Now)
	s.Set("a", []byte("1"), time.Second)
	s.Set("b", []byte("2"), time.Minute)
	clock.Advance(2 * time.Second)
	s.Get("a")

	s.Clear()

	if got := s.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
	if got := s.SweepExpired(); got != 0 {
		t.Errorf("SweepExpired() after Clear = %d, want 0", got)
	}
}

func TestLocalStore_Entry(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(clock.Now)
	start := clock.Now()

	s.Set("k", []byte("v"), time.Minute)
	s.Get("k")
	s.Get("k")

	entry, ok := s.Entry("k")
	if !ok {
		t.Fatal("Entry(k) ok = false, want true")
	}
	if !entry.CreatedAt.Equal(start) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, start)
	}
	if want := start.Add(time.Minute); !entry.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", entry.ExpiresAt, want)
	}
	if entry.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", entry.AccessCount)
	}
	if !entry.Live(start) || entry.Live(start.Add(time.Minute)) {
		t.Error("Live() does not respect ExpiresAt")
	}
}

func TestLocalStore_ConcurrentAccess(t *testing.T) {
	s := NewLocalStore(nil)

	const goroutines = 50
	const ops = 500

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("key-%d", i%10)
				switch i % 4 {
				case 0:
					s.Set(key, []byte("v"), time.Minute)
				case 1:
					s.Get(key)
				case 2:
					s.Delete(key)
				case 3:
					s.SweepExpired()
				}
			}
		}()
	}
	wg.Wait()
}
