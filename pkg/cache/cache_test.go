package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")
	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected hit for fresh key")
	}
	if got != "value" {
		t.Errorf("got %v, want value", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestExpiration(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short", 1, 10*time.Millisecond)
	if _, ok := c.Get("short"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestOverwrite(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", 1)
	c.Set("key", 2)
	got, _ := c.Get("key")
	if got != 2 {
		t.Errorf("got %v, want 2", got)
	}
}

func TestDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", 1)
	c.Delete("key")
	if _, ok := c.Get("key"); ok {
		t.Error("expected miss after delete")
	}
	// Deleting a missing key is a no-op.
	c.Delete("absent")
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 1600 {
		t.Errorf("expected 1600 entries, got %d", c.Len())
	}
}
