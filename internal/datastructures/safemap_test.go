package datastructures

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSafeMapBasicOperations(t *testing.T) {
	sm := NewSafeMap[string, int]()

	sm.Set("key1", 42)
	value, ok := sm.Get("key1")
	if !ok || value != 42 {
		t.Errorf("expected key1=42, got %d ok=%v", value, ok)
	}

	if _, ok := sm.Get("nonexistent"); ok {
		t.Error("expected not to find nonexistent key")
	}
}

func TestSafeMapGetOrDefault(t *testing.T) {
	sm := NewSafeMap[string, int]()

	value := sm.GetOrDefault("missing", 100)
	if value != 100 {
		t.Errorf("expected default 100, got %d", value)
	}
	stored, ok := sm.Get("missing")
	if !ok || stored != 100 {
		t.Error("expected GetOrDefault to persist the default")
	}

	sm.Set("existing", 50)
	if value := sm.GetOrDefault("existing", 200); value != 50 {
		t.Errorf("expected existing value 50, got %d", value)
	}
}

func TestSafeMapPop(t *testing.T) {
	sm := NewSafeMap[string, int]()
	sm.Set("k", 7)

	value, ok := sm.Pop("k")
	if !ok || value != 7 {
		t.Errorf("expected Pop to return 7, got %d ok=%v", value, ok)
	}
	if _, ok := sm.Get("k"); ok {
		t.Error("expected key removed after Pop")
	}
	if _, ok := sm.Pop("k"); ok {
		t.Error("expected second Pop to report absence")
	}
}

func TestSafeMapDelete(t *testing.T) {
	sm := NewSafeMap[string, int]()
	sm.Set("delete_me", 123)
	sm.Delete("delete_me")
	if _, ok := sm.Get("delete_me"); ok {
		t.Error("expected key to be deleted")
	}
	sm.Delete("never_existed") // must not panic
}

func TestSafeMapNilMapInitialization(t *testing.T) {
	sm := &SafeMap[string, int]{}
	sm.Set("test", 42)
	if value, ok := sm.Get("test"); !ok || value != 42 {
		t.Errorf("expected Set on zero-value SafeMap to work, got %d ok=%v", value, ok)
	}
}

func TestSafeMapKeysValuesLen(t *testing.T) {
	sm := NewSafeMap[int, string]()
	sm.Set(1, "a")
	sm.Set(2, "b")
	sm.Set(3, "c")

	if sm.Len() != 3 {
		t.Errorf("expected len 3, got %d", sm.Len())
	}
	if len(sm.Keys()) != 3 {
		t.Errorf("expected 3 keys, got %d", len(sm.Keys()))
	}
	if len(sm.Values()) != 3 {
		t.Errorf("expected 3 values, got %d", len(sm.Values()))
	}
	if sm.IsEmpty() {
		t.Error("expected non-empty map")
	}
}

func TestSafeMapConcurrentReadsWrites(t *testing.T) {
	sm := NewSafeMap[int, string]()

	var wg sync.WaitGroup
	const goroutines, ops = 100, 100

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := id*ops + j
				sm.Set(key, fmt.Sprintf("value_%d", key))
			}
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				sm.Get(id*ops + j)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		for j := 0; j < ops; j++ {
			key := i*ops + j
			value, ok := sm.Get(key)
			if !ok || value != fmt.Sprintf("value_%d", key) {
				t.Fatalf("missing or wrong value for key %d: %q ok=%v", key, value, ok)
			}
		}
	}
}

func TestSafeMapConcurrentGetOrDefault(t *testing.T) {
	sm := NewSafeMap[string, int]()

	var wg sync.WaitGroup
	var successCount int64
	const goroutines = 50

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if sm.GetOrDefault("shared_key", id) == id {
				atomic.AddInt64(&successCount, 1)
			}
		}(i)
	}
	wg.Wait()

	if successCount != 1 {
		t.Errorf("expected exactly one winner, got %d", successCount)
	}
}

func TestSafeMapConcurrentDeletes(t *testing.T) {
	sm := NewSafeMap[int, string]()
	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		sm.Set(i, fmt.Sprintf("value_%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < numKeys; i++ {
		wg.Add(1)
		go func(key int) {
			defer wg.Done()
			sm.Delete(key)
		}(i)
	}
	wg.Wait()

	if sm.Len() != 0 {
		t.Errorf("expected all keys deleted, %d remain", sm.Len())
	}
}
