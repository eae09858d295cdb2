package orm

import (
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
	"github.com/ValentinKolb/kvorm/lib/db/engines/maple"
	dbtesting "github.com/ValentinKolb/kvorm/lib/db/testing"
	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/lib/store/lstore"
	"github.com/stretchr/testify/require"
)

type Author struct {
	Name        string `kv:"name"`
	ActiveYears [2]int `kv:"active_years"`
}

type Book struct {
	Title   string   `kv:"title"`
	Author  Author   `kv:"author"`
	Rating  float64  `kv:"rating"`
	InStock bool     `kv:"in_stock"`
	Editor  *Author  `kv:"editor"`
	Tags    []string `kv:"tags"`
}

var oliverTwist = Book{
	Title:   "Oliver Twist",
	Author:  Author{Name: "Charles Dickens", ActiveYears: [2]int{1220, 1280}},
	Rating:  2,
	InStock: false,
}

// library bundles a store with the collections most tests need
type library struct {
	store   *Store
	local   store.IStore
	clock   *dbtesting.Clock
	authors *Collection[Author]
	books   *Collection[Book]
}

func newLocalStore(t *testing.T, clock *dbtesting.Clock) store.IStore {
	local := lstore.NewLocalStore(func() db.KVDB {
		return maple.NewMapleDB(&maple.DBOptions{NumShards: 4, GCInterval: time.Hour, Clock: clock.Now})
	})
	t.Cleanup(func() { _ = local.Close() })
	return local
}

func newLibrary(t *testing.T, bookOpts []CollectionOption, opts ...StoreOption) *library {
	clock := dbtesting.NewClock()
	local := newLocalStore(t, clock)
	s := NewStore(store.Shared(local), opts...)

	authors, err := RegisterCollection[Author](s, "name")
	require.NoError(t, err)
	books, err := RegisterCollection[Book](s, "title", bookOpts...)
	require.NoError(t, err)

	return &library{store: s, local: local, clock: clock, authors: authors, books: books}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
