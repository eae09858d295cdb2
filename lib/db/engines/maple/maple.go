package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
	"github.com/ValentinKolb/kvorm/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/kvorm/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum          = "MAPLEDB\x00"          // File format identifier
	mapleVersion      = 4                      // Snapshot format version
	defaultGCInterval = 100 * time.Millisecond // Default interval between GC runs
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl is a sharded in-memory database with wall-clock lifetimes
type mapleImpl struct {
	seed   uint64
	shards []*internal.Shard
	now    func() time.Time

	// garbage collection
	gcInterval time.Duration
	gcMu       sync.Mutex
	gcStop     chan struct{}
	gcDone     chan struct{}
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards  int              // Number of shards (0 = number of CPUs)
	GCInterval time.Duration    // Time between GC runs (0 = default)
	Clock      func() time.Time // Time source (nil = time.Now)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards:  runtime.NumCPU(),
		GCInterval: defaultGCInterval,
		Clock:      time.Now,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}
	if opts.NumShards <= 0 {
		opts.NumShards = defaults.NumShards
	}
	if opts.GCInterval <= 0 {
		opts.GCInterval = defaults.GCInterval
	}
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}

	shards := make([]*internal.Shard, opts.NumShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}

	newDB := &mapleImpl{
		seed:       util.GenerateSeed(),
		shards:     shards,
		now:        opts.Clock,
		gcInterval: opts.GCInterval,
	}
	newDB.startGC()

	return newDB
}

func (maple *mapleImpl) shard(key string) *internal.Shard {
	return maple.shards[util.ShardIndex(key, maple.seed, len(maple.shards))]
}

func (maple *mapleImpl) nowNano() int64 {
	return maple.now().UnixNano()
}

// deadlines converts relative lifetimes into absolute deadlines
func (maple *mapleImpl) deadlines(expireIn, deleteIn time.Duration) (expireAt, deleteAt int64) {
	now := maple.nowNano()
	if expireIn > 0 {
		expireAt = now + int64(expireIn)
	}
	if deleteIn > 0 {
		deleteAt = now + int64(deleteIn)
	}
	return expireAt, deleteAt
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry, dropping any previous lifetime.
func (maple *mapleImpl) Set(key string, value []byte) {
	shard := maple.shard(key)
	shard.Data.Store(key, internal.Entry{Value: copyBytes(value)})
	shard.Unschedule(key)
}

// SetE inserts or updates an entry that expires after expireIn and is removed after deleteIn.
func (maple *mapleImpl) SetE(key string, value []byte, expireIn, deleteIn time.Duration) {
	shard := maple.shard(key)
	expireAt, deleteAt := maple.deadlines(expireIn, deleteIn)
	entry := internal.Entry{Value: copyBytes(value), ExpireAt: expireAt, DeleteAt: deleteAt}

	shard.Data.Store(key, entry)
	shard.Schedule(key, entry)
}

// SetEIfUnset behaves like SetE but leaves a live entry untouched.
func (maple *mapleImpl) SetEIfUnset(key string, value []byte, expireIn, deleteIn time.Duration) {
	shard := maple.shard(key)
	expireAt, deleteAt := maple.deadlines(expireIn, deleteIn)
	now := maple.nowNano()

	var (
		written bool
		entry   = internal.Entry{Value: copyBytes(value), ExpireAt: expireAt, DeleteAt: deleteAt}
	)
	shard.Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded {
			if _, isDeleted := old.TTLInfo(now); !isDeleted {
				return old, false
			}
		}
		written = true
		return entry, false
	})

	if written {
		shard.Schedule(key, entry)
	}
}

// Expire drops the value of key immediately. The key stays findable with Has().
func (maple *mapleImpl) Expire(key string) {
	shard := maple.shard(key)
	now := maple.nowNano()

	shard.Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true // nothing to expire, don't create the entry
		}
		if _, isDeleted := old.TTLInfo(now); isDeleted {
			return old, true
		}
		old.Value = nil
		old.ExpireAt = now
		return old, false
	})
}

// Delete removes key and its value immediately.
func (maple *mapleImpl) Delete(key string) {
	shard := maple.shard(key)
	shard.Data.Delete(key)
	shard.Unschedule(key)
}

// Flush removes every entry of every shard.
func (maple *mapleImpl) Flush() {
	for _, shard := range maple.shards {
		shard.Reset()
	}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get returns a copy of the live value for key.
func (maple *mapleImpl) Get(key string) ([]byte, bool) {
	entry, ok := maple.shard(key).Data.Load(key)
	if !ok {
		return nil, false
	}
	if isExpired, _ := entry.TTLInfo(maple.nowNano()); isExpired {
		return nil, false
	}
	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	return value, true
}

// Has reports whether key exists. Expired keys are still found.
func (maple *mapleImpl) Has(key string) bool {
	entry, ok := maple.shard(key).Data.Load(key)
	if !ok {
		return false
	}
	_, isDeleted := entry.TTLInfo(maple.nowNano())
	return !isDeleted
}

// Keys returns every key starting with prefix that is not deleted.
func (maple *mapleImpl) Keys(prefix string) []string {
	now := maple.nowNano()
	keys := make([]string, 0)
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}
			if _, isDeleted := entry.TTLInfo(now); !isDeleted {
				keys = append(keys, key)
			}
			return true
		})
	}
	return keys
}

// --------------------------------------------------------------------------
// Garbage Collection
// --------------------------------------------------------------------------

// startGC starts the garbage collector if it is not running
func (maple *mapleImpl) startGC() {
	maple.gcMu.Lock()
	defer maple.gcMu.Unlock()
	if maple.gcStop != nil {
		return
	}
	maple.gcStop = make(chan struct{})
	maple.gcDone = make(chan struct{})
	go maple.garbageCollector(maple.gcStop, maple.gcDone)
}

// stopGC stops the garbage collector and waits until the current run is done
func (maple *mapleImpl) stopGC() {
	maple.gcMu.Lock()
	defer maple.gcMu.Unlock()
	if maple.gcStop == nil {
		return
	}
	close(maple.gcStop)
	<-maple.gcDone
	maple.gcStop, maple.gcDone = nil, nil
}

// garbageCollector frees expired values and removes deleted entries on every tick.
// Do not call directly, use startGC() and stopGC().
func (maple *mapleImpl) garbageCollector(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(maple.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			maple.collect()
		}
	}
}

// collect runs one GC cycle over all shards
func (maple *mapleImpl) collect() {
	// read the clock once so a cycle always terminates
	now := maple.nowNano()

	for _, shard := range maple.shards {
		expired, deleted := shard.Due(now)

		for _, key := range expired {
			shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
				if !loaded {
					return e, true
				}
				// the entry may have been rewritten since it was scheduled
				if isExpired, _ := e.TTLInfo(now); !isExpired {
					return e, false
				}
				e.Value = nil
				return e, false
			})
		}

		for _, key := range deleted {
			shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
				if !loaded {
					return e, true
				}
				if _, isDeleted := e.TTLInfo(now); !isDeleted {
					return e, false
				}
				return internal.Entry{}, true
			})
		}
	}
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a fuzzy snapshot of all entries that are not deleted.
// Writes may continue while the snapshot is taken.
func (maple *mapleImpl) Save(w io.Writer) error {
	type entryToSave struct {
		key   string
		entry internal.Entry
	}

	now := maple.nowNano()
	var entries []entryToSave
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			if _, isDeleted := entry.TTLInfo(now); isDeleted {
				return true
			}
			entry.Value = copyBytes(entry.Value)
			entries = append(entries, entryToSave{key, entry})
			return true
		})
	}

	bw := bufio.NewWriterSize(w, 1024*1024)

	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.ExpireAt); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.DeleteAt); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.entry.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.entry.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the database content with a snapshot written by Save.
// Must not be called concurrently with other operations.
func (maple *mapleImpl) Load(r io.Reader) error {
	maple.stopGC()
	defer maple.startGC()

	br := bufio.NewReaderSize(r, 1024*1024)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	maple.Flush()

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return err
		}

		var entry internal.Entry
		if err := binary.Read(br, binary.LittleEndian, &entry.ExpireAt); err != nil {
			return err
		}
		if err := binary.Read(br, binary.LittleEndian, &entry.DeleteAt); err != nil {
			return err
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		entry.Value = make([]byte, valueLen)
		if _, err := io.ReadFull(br, entry.Value); err != nil {
			return err
		}

		key := string(keyBytes)
		shard := maple.shard(key)
		shard.Data.Store(key, entry)
		shard.Schedule(key, entry)
	}

	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	var (
		entries         int
		pendingExpire   int
		pendingDeletion int
	)
	for _, shard := range maple.shards {
		entries += shard.Data.Size()
		e, d := shard.Scheduled()
		pendingExpire += e
		pendingDeletion += d
	}

	meta := &struct {
		ShardCount      int    `json:"shard_count"`
		PendingExpire   int    `json:"pending_expire"`
		PendingDeletion int    `json:"pending_deletion"`
		GCInterval      string `json:"gc_interval"`
	}{
		ShardCount:      len(maple.shards),
		PendingExpire:   pendingExpire,
		PendingDeletion: pendingDeletion,
		GCInterval:      maple.gcInterval.String(),
	}

	supportedFeatures := []db.Feature{
		db.FeatureSet, db.FeatureSetE, db.FeatureSetEIfUnset,
		db.FeatureExpire, db.FeatureDelete,
		db.FeatureGet, db.FeatureHas, db.FeatureKeys, db.FeatureFlush,
		db.FeatureSave, db.FeatureLoad,
		db.FeatureGarbageCollect,
	}

	return db.DatabaseInfo{
		Entries:           entries,
		DbType:            db.ImplMaple,
		SupportedFeatures: supportedFeatures,
		Metadata:          meta,
	}
}

// SupportsFeature reports whether every feature in the bit set is supported
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSet | db.FeatureSetE | db.FeatureSetEIfUnset |
		db.FeatureExpire | db.FeatureDelete |
		db.FeatureGet | db.FeatureHas | db.FeatureKeys | db.FeatureFlush |
		db.FeatureSave | db.FeatureLoad |
		db.FeatureGarbageCollect
	return feature&supported == feature
}

// Close stops the garbage collector. Reads and writes keep working.
func (maple *mapleImpl) Close() error {
	maple.stopGC()
	return nil
}
