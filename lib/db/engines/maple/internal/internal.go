package internal

import (
	"sync"

	"github.com/ValentinKolb/kvorm/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (key-value pair with metadata)
// --------------------------------------------------------------------------

// Entry stores a value with its lifetime deadlines (unix nanoseconds, 0 = never)
type Entry struct {
	Value    []byte
	ExpireAt int64
	DeleteAt int64
}

// TTLInfo returns whether the entry is expired and whether the entry is deleted at the given time
func (e Entry) TTLInfo(now int64) (bool, bool) {
	var (
		isExpired = e.ExpireAt != 0 && now >= e.ExpireAt
		isDeleted = e.DeleteAt != 0 && now >= e.DeleteAt
	)
	// a deleted entry is always expired as well
	return isExpired || isDeleted, isDeleted
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database.
// Data is safe for concurrent use, the heaps are guarded by mu.
type Shard struct {
	Data *xsync.MapOf[string, Entry]

	mu         sync.Mutex
	expireHeap *util.MapHeap
	deleteHeap *util.MapHeap
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data:       xsync.NewMapOf[string, Entry](),
		expireHeap: util.NewMapHeap(),
		deleteHeap: util.NewMapHeap(),
	}
}

// Schedule registers the deadlines of entry with the garbage collector.
// Keys without deadlines are removed from the schedule.
func (s *Shard) Schedule(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ExpireAt != 0 {
		s.expireHeap.Schedule(key, entry.ExpireAt)
	} else {
		s.expireHeap.Remove(key)
	}
	if entry.DeleteAt != 0 {
		s.deleteHeap.Schedule(key, entry.DeleteAt)
	} else {
		s.deleteHeap.Remove(key)
	}
}

// Unschedule removes key from the garbage collector.
func (s *Shard) Unschedule(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireHeap.Remove(key)
	s.deleteHeap.Remove(key)
}

// Due pops every key whose expiration or deletion deadline has passed.
func (s *Shard) Due(now int64) (expired, deleted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireHeap.PopDue(now), s.deleteHeap.PopDue(now)
}

// Scheduled reports how many keys wait for expiration and deletion.
func (s *Shard) Scheduled() (expire, del int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireHeap.Len(), s.deleteHeap.Len()
}

// Reset drops all data and schedules of the shard.
func (s *Shard) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Data.Clear()
	s.expireHeap.Reset()
	s.deleteHeap.Reset()
}
