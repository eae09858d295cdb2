package orm

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("orm")

// DefaultMaxDepth bounds the length of nested model chains
const DefaultMaxDepth = 32

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store binds model collections to a key-value store.
// All collections of a Store share its connection and default lifetime.
type Store struct {
	conn       *Connection
	defaultTTL time.Duration
	maxDepth   int
	lockTTL    time.Duration

	mu     sync.Mutex // serializes registrations
	byName *xsync.MapOf[string, *collectionInfo]
	byType *xsync.MapOf[reflect.Type, *collectionInfo]
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithDefaultTTL sets the lifetime of records written without a collection or call TTL
func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.defaultTTL = ttl }
}

// WithMaxDepth sets the longest allowed chain of nested models
func WithMaxDepth(depth int) StoreOption {
	return func(s *Store) { s.maxDepth = depth }
}

// WithUpdateLocks makes UpdateOne hold a per-record lock (kept in the store itself)
// for the read-modify-write cycle. ttl bounds both the wait for and the lifetime of a lock.
func WithUpdateLocks(ttl time.Duration) StoreOption {
	return func(s *Store) { s.lockTTL = ttl }
}

// NewStore creates a store whose operations run on handles opened by dial
func NewStore(dial store.Dialer, opts ...StoreOption) *Store {
	s := &Store{
		conn:     NewConnection(dial),
		maxDepth: DefaultMaxDepth,
		byName:   xsync.NewMapOf[string, *collectionInfo](),
		byType:   xsync.NewMapOf[reflect.Type, *collectionInfo](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	return s
}

// Connection returns the connection shared by all collections of s
func (s *Store) Connection() *Connection {
	return s.conn
}

// Close closes an explicitly opened connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Clear removes every key of the backing store, including keys not written by s
func (s *Store) Clear() error {
	start := time.Now()
	err := s.conn.With(func(h store.IStore) error {
		return h.FlushAll()
	})
	observe("*", "clear", start, err)
	return err
}

// ModelType returns the model type registered under name, ignoring case
func (s *Store) ModelType(name string) (reflect.Type, bool) {
	info, ok := s.byName.Load(strings.ToLower(name))
	if !ok {
		return nil, false
	}
	return info.typ, true
}

// Models returns the names of all registered collections
func (s *Store) Models() []string {
	var names []string
	s.byName.Range(func(_ string, info *collectionInfo) bool {
		names = append(names, info.name)
		return true
	})
	return names
}

// ttlFor resolves the lifetime of a write: call, collection, store, none.
// Negative lifetimes are rejected wherever they were set.
func (s *Store) ttlFor(info *collectionInfo, o *writeOptions) (time.Duration, error) {
	switch {
	case o.ttl < 0:
		return 0, invalidArgumentf("negative ttl %s for a write to %q", o.ttl, info.name)
	case info.ttl < 0:
		return 0, invalidArgumentf("negative ttl %s of collection %q", info.ttl, info.name)
	case s.defaultTTL < 0:
		return 0, invalidArgumentf("negative default ttl %s", s.defaultTTL)
	case o.ttl > 0:
		return o.ttl, nil
	case info.ttl > 0:
		return info.ttl, nil
	default:
		return s.defaultTTL, nil
	}
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// collectionInfo is the registered, resolved schema of one model
type collectionInfo struct {
	name   string
	typ    reflect.Type
	fields []*Field
	byName map[string]*Field
	pk     *Field
	ttl    time.Duration
	depth  int // longest nested chain below this model
}

func (s *Store) register(t reflect.Type, pkField string, o *collectionOptions) (*collectionInfo, error) {
	layout, err := fieldLayout(t)
	if err != nil {
		return nil, err
	}

	name := o.name
	if name == "" {
		name = strings.ToLower(t.Name())
	}
	if err := validateModelName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName.Load(strings.ToLower(name)); ok {
		return nil, configErrorf("model name %q already registered", name)
	}
	if other, ok := s.byType.Load(t); ok {
		return nil, configErrorf("type %s already registered as %q", t, other.name)
	}

	info := &collectionInfo{
		name:   name,
		typ:    t,
		byName: make(map[string]*Field, len(layout)),
		ttl:    o.ttl,
	}
	isModel := func(rt reflect.Type) bool {
		_, ok := s.byType.Load(rt)
		return ok || rt == t
	}

	for _, lf := range layout {
		f := *lf
		if nestedType, ok := f.containsNested(isModel); ok {
			return nil, configErrorf("field %q of %q holds a collection of model %s", f.Name, name, nestedType)
		}
		if f.Kind == KindNested {
			if f.Type == t {
				return nil, configErrorf("field %q of %q references its own model", f.Name, name)
			}
			nested, ok := s.byType.Load(f.Type)
			if !ok {
				return nil, configErrorf("field %q of %q: model %s must be registered first", f.Name, name, f.Type)
			}
			f.nested = nested
			f.Nested = nested.name
			info.depth = max(info.depth, nested.depth+1)
		}
		info.fields = append(info.fields, &f)
		info.byName[f.Name] = &f
	}
	if info.depth > s.maxDepth {
		return nil, configErrorf("model %q nests %d levels deep, at most %d allowed", name, info.depth, s.maxDepth)
	}

	pk := info.byName[pkField]
	if pk == nil {
		for _, f := range info.fields {
			if f.GoName == pkField {
				pk = f
				break
			}
		}
	}
	if pk == nil {
		return nil, configErrorf("model %q has no field %q", name, pkField)
	}
	if pk.Optional || !pk.Kind.isKeyKind() {
		return nil, configErrorf("primary key %q of %q must be a string, integer or text field", pk.Name, name)
	}
	info.pk = pk

	s.byName.Store(strings.ToLower(name), info)
	s.byType.Store(t, info)
	Logger.Infof("registered model %q (%s) with %d fields, primary key %q", name, t, len(info.fields), pk.Name)
	return info, nil
}
