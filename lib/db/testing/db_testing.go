package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
)

// DBFactory creates a new instance of a KVDB implementation that reads time from clock
type DBFactory func(clock func() time.Time) db.KVDB

// Clock is a manually advanced time source for lifetime tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock standing at a fixed point in time
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current time of the clock
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RunKVDBTests runs the conformance test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(time.Now))
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory(time.Now))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(time.Now))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(time.Now))
		})

		t.Run("SetEIfUnset", func(t *testing.T) {
			clock := NewClock()
			testSetEIfUnset(t, factory(clock.Now), clock)
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			clock := NewClock()
			testKeyExpiry(t, factory(clock.Now), clock)
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			clock := NewClock()
			testManyExpiringKeys(t, factory(clock.Now), clock)
		})

		t.Run("Keys", func(t *testing.T) {
			clock := NewClock()
			testKeys(t, factory(clock.Now), clock)
		})

		t.Run("Flush", func(t *testing.T) {
			testFlush(t, factory(time.Now))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory(time.Now))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "book_%&_1"
	testValue1 := []byte("value-1")
	testValue2 := []byte("value-2")

	database.Set(testKey, testValue1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2)

	result, exists = database.Get(testKey)
	if !exists || !bytes.Equal(result, testValue2) {
		t.Errorf("Expected overwritten value %s, got %s (exists=%v)", testValue2, result, exists)
	}

	if _, exists = database.Get("nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'
	originalValue, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("mutable")
	database.Set("mutable-key", input)
	input[0] = 'X'
	if stored, _ := database.Get("mutable-key"); !bytes.Equal(stored, []byte("mutable")) {
		t.Errorf("Set should copy the value, got %s", stored)
	}

	database.Set("empty-key", []byte{})
	if result, exists = database.Get("empty-key"); !exists || len(result) != 0 {
		t.Errorf("Expected empty value to be stored, got %v (exists=%v)", result, exists)
	}
}

func testExpire(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureExpire|db.FeatureGet|db.FeatureHas)

	database.Set("key", []byte("value"))
	database.Expire("key")

	if _, exists := database.Get("key"); exists {
		t.Errorf("Expected expired key to return no value")
	}
	if !database.Has("key") {
		t.Errorf("Expected expired key to be findable with Has")
	}

	database.Expire("missing")
	if database.Has("missing") {
		t.Errorf("Expire must not create missing keys")
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDelete|db.FeatureGet|db.FeatureHas)

	database.Set("key", []byte("value"))
	database.Delete("key")

	if _, exists := database.Get("key"); exists {
		t.Errorf("Expected deleted key to return no value")
	}
	if database.Has("key") {
		t.Errorf("Expected deleted key to be gone")
	}

	// deleting twice is fine
	database.Delete("key")
	database.Delete("never-existed")

	database.Set("key", []byte("again"))
	if result, exists := database.Get("key"); !exists || string(result) != "again" {
		t.Errorf("Expected key to be writable after delete, got %s", result)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas)

	if database.Has("key") {
		t.Errorf("Expected empty database to not have key")
	}
	database.Set("key", nil)
	if !database.Has("key") {
		t.Errorf("Expected key with nil value to exist")
	}
}

func testSetEIfUnset(t *testing.T, database db.KVDB, clock *Clock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetEIfUnset|db.FeatureGet)

	database.SetEIfUnset("lock", []byte("owner-1"), 0, time.Second)
	database.SetEIfUnset("lock", []byte("owner-2"), 0, time.Second)

	if result, _ := database.Get("lock"); string(result) != "owner-1" {
		t.Errorf("Expected first writer to win, got %s", result)
	}

	clock.Advance(time.Second)

	database.SetEIfUnset("lock", []byte("owner-2"), 0, time.Second)
	if result, _ := database.Get("lock"); string(result) != "owner-2" {
		t.Errorf("Expected write after deletion deadline to succeed, got %s", result)
	}
}

func testKeyExpiry(t *testing.T, database db.KVDB, clock *Clock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE|db.FeatureGet|db.FeatureHas)

	testKey := "expiring-key"
	testValue := []byte("expiring-value")

	database.SetE(testKey, testValue, 10*time.Second, 20*time.Second)

	clock.Advance(9 * time.Second)
	if result, exists := database.Get(testKey); !exists || !bytes.Equal(result, testValue) {
		t.Errorf("Key should still be readable after 9s, got %s (exists=%v)", result, exists)
	}

	clock.Advance(time.Second)
	if _, exists := database.Get(testKey); exists {
		t.Errorf("Key should have expired after 10s (get)")
	}
	if !database.Has(testKey) {
		t.Errorf("Key should still exist after 10s (has)")
	}

	clock.Advance(10 * time.Second)
	if database.Has(testKey) {
		t.Errorf("Key should have been deleted after 20s (has)")
	}

	// only a deletion deadline: expires at the same time
	database.SetE("key2", []byte("value2"), 0, 10*time.Second)
	clock.Advance(9 * time.Second)
	if _, exists := database.Get("key2"); !exists {
		t.Errorf("Key2 should still be readable after 9s")
	}
	clock.Advance(time.Second)
	if _, exists := database.Get("key2"); exists {
		t.Errorf("Key2 should be gone after 10s (get)")
	}
	if database.Has("key2") {
		t.Errorf("Key2 should be gone after 10s (has)")
	}

	// Set clears the lifetime of an existing key
	database.SetE("key3", []byte("value3"), time.Second, time.Second)
	database.Set("key3", []byte("value3b"))
	clock.Advance(time.Minute)
	if result, exists := database.Get("key3"); !exists || string(result) != "value3b" {
		t.Errorf("Set should clear the lifetime, got %s (exists=%v)", result, exists)
	}
}

func testManyExpiringKeys(t *testing.T, database db.KVDB, clock *Clock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE|db.FeatureGet|db.FeatureHas)

	const n = 1000
	for i := 0; i < n; i++ {
		database.SetE(fmt.Sprintf("key-%d", i), []byte("v"), 0, time.Duration(i+1)*time.Millisecond)
	}

	clock.Advance(n / 2 * time.Millisecond)

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := i+1 > n/2
		if got := database.Has(key); got != want {
			t.Errorf("Has(%s) = %v, want %v", key, got, want)
		}
	}
}

func testKeys(t *testing.T, database db.KVDB, clock *Clock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureKeys|db.FeatureSetE)

	database.Set("book_%&_1", []byte("a"))
	database.Set("book_%&_2", []byte("b"))
	database.Set("author_%&_1", []byte("c"))
	database.SetE("book_%&_3", []byte("d"), 0, time.Second)

	keys := database.Keys("book_%&_")
	sort.Strings(keys)
	want := []string{"book_%&_1", "book_%&_2", "book_%&_3"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("Expected keys %v, got %v", want, keys)
	}

	clock.Advance(time.Second)

	keys = database.Keys("book_%&_")
	if len(keys) != 2 {
		t.Errorf("Expected deleted key to be left out, got %v", keys)
	}

	if keys = database.Keys("missing_%&_"); len(keys) != 0 {
		t.Errorf("Expected no keys for unknown prefix, got %v", keys)
	}

	if keys = database.Keys(""); len(keys) != 3 {
		t.Errorf("Expected empty prefix to match all keys, got %v", keys)
	}
}

func testFlush(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureFlush|db.FeatureHas)

	for i := 0; i < 100; i++ {
		database.SetE(fmt.Sprintf("key-%d", i), []byte("v"), time.Hour, time.Hour)
	}
	database.Flush()

	for i := 0; i < 100; i++ {
		if database.Has(fmt.Sprintf("key-%d", i)) {
			t.Fatalf("Expected key-%d to be gone after flush", i)
		}
	}
	if info := database.GetInfo(); info.Entries != 0 {
		t.Errorf("Expected 0 entries after flush, got %d", info.Entries)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	clock := NewClock()
	source := factory(clock.Now)
	defer source.Close()

	requireFeature(t, source, db.FeatureSave|db.FeatureLoad)

	source.Set("plain", []byte("value"))
	source.SetE("expiring", []byte("value"), time.Second, time.Minute)
	source.SetE("deleted", []byte("value"), 0, time.Second)
	source.Set("empty", []byte{})

	clock.Advance(2 * time.Second)

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	target := factory(clock.Now)
	defer target.Close()
	target.Set("stale", []byte("dropped by load"))

	if err := target.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if result, exists := target.Get("plain"); !exists || string(result) != "value" {
		t.Errorf("Expected plain key to survive, got %s (exists=%v)", result, exists)
	}
	if _, exists := target.Get("expiring"); exists {
		t.Errorf("Expected expiring key to stay expired")
	}
	if !target.Has("expiring") {
		t.Errorf("Expected expiring key to still exist")
	}
	if target.Has("deleted") {
		t.Errorf("Expected deleted key to not be saved")
	}
	if target.Has("stale") {
		t.Errorf("Expected Load to replace existing content")
	}
	if _, exists := target.Get("empty"); !exists {
		t.Errorf("Expected empty value to survive")
	}

	clock.Advance(time.Minute)
	if target.Has("expiring") {
		t.Errorf("Expected loaded lifetime to be kept")
	}

	if err := target.Load(bytes.NewBufferString("not a snapshot")); err == nil {
		t.Errorf("Expected Load of garbage to fail")
	}
}

func testConcurrency(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("key-%d-%d", worker, i%50)
				database.Set(key, []byte(key))
				if result, exists := database.Get(key); exists && string(result) != key {
					t.Errorf("Expected %s, got %s", key, result)
				}
				if i%7 == 0 {
					database.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()
}
