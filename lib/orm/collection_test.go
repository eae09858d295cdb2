package orm

import (
	"bytes"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/lib/lockmgr"
	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookScenario(t *testing.T) {
	lib := newLibrary(t, nil)

	id, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)
	assert.Equal(t, "Oliver Twist", id)

	book, err := lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.True(t, Equal(oliverTwist, *book))

	partial, err := lib.books.SelectOnePartial("Oliver Twist", []string{"title", "author", "in_stock"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title":    "Oliver Twist",
		"author":   "author_%&_Charles Dickens",
		"in_stock": false,
	}, partial)

	require.NoError(t, lib.books.DeleteOne("Oliver Twist"))

	book, err = lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.Nil(t, book)

	author, err := lib.authors.SelectOne("Charles Dickens")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, oliverTwist.Author, *author)
}

func TestSelectManySkipsAbsent(t *testing.T) {
	lib := newLibrary(t, nil)
	require.NoError(t, lib.books.InsertMany([]Book{
		{Title: "Bleak House", Author: Author{Name: "Charles Dickens"}},
		{Title: "Emma", Author: Author{Name: "Jane Austen"}, Rating: 4},
	}))

	books, err := lib.books.SelectMany([]any{"Emma", "Ulysses", "Bleak House"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Emma", books[0].Title)
	assert.Equal(t, "Jane Austen", books[0].Author.Name)
	assert.Equal(t, "Bleak House", books[1].Title)

	book, err := lib.books.SelectOne("Ulysses")
	require.NoError(t, err)
	assert.Nil(t, book)

	books, err = lib.books.SelectMany(nil)
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = lib.books.SelectMany([]any{"Emma", ""})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSelectAll(t *testing.T) {
	lib := newLibrary(t, nil)
	for _, title := range []string{"Persuasion", "Emma", "Sanditon"} {
		_, err := lib.books.InsertOne(Book{Title: title, Author: Author{Name: "Jane Austen"}})
		require.NoError(t, err)
	}

	books, err := lib.books.SelectAll()
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, []string{"Emma", "Persuasion", "Sanditon"}, []string{books[0].Title, books[1].Title, books[2].Title})

	authors, err := lib.authors.SelectAll()
	require.NoError(t, err)
	assert.Len(t, authors, 1)
}

func TestBatchSelectIsolatesCoercionErrors(t *testing.T) {
	lib := newLibrary(t, nil)
	require.NoError(t, lib.authors.InsertMany([]Author{{Name: "a"}, {Name: "c"}}))

	bad, err := encodeHash(map[string]string{"name": "b", "active_years": "not json"})
	require.NoError(t, err)
	require.NoError(t, lib.local.Set("author"+Separator+"b", bad))

	authors, err := lib.authors.SelectAll()
	require.ErrorIs(t, err, ErrCoercion)
	require.Len(t, authors, 2)
	assert.Equal(t, "a", authors[0].Name)
	assert.Equal(t, "c", authors[1].Name)

	authors, err = lib.authors.SelectMany([]any{"b", "c"})
	require.ErrorIs(t, err, ErrCoercion)
	require.Len(t, authors, 1)

	values, err := lib.authors.SelectPartial([]string{"active_years"})
	require.ErrorIs(t, err, ErrCoercion)
	assert.Len(t, values, 2)
}

func TestPartialSelect(t *testing.T) {
	lib := newLibrary(t, nil)
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)
	_, err = lib.books.InsertOne(Book{Title: "Emma", Author: Author{Name: "Jane Austen"}, Rating: 4.5, Editor: &Author{Name: "R. W. Chapman"}})
	require.NoError(t, err)

	values, err := lib.books.SelectOnePartial("Oliver Twist", []string{"title", "unknown", "editor", "rating"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Oliver Twist", "editor": nil, "rating": 2.0}, values)

	values, err = lib.books.SelectOnePartial("Ulysses", []string{"title"})
	require.NoError(t, err)
	assert.Nil(t, values)

	all, err := lib.books.SelectPartial([]string{"rating"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []map[string]any{{"rating": 2.0}, {"rating": 4.5}}, all)

	some, err := lib.books.SelectPartial([]string{"editor"}, "Emma", "Ulysses")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"editor": "author_%&_R. W. Chapman"}}, some)
}

func TestUpdatePreservesOtherFields(t *testing.T) {
	lib := newLibrary(t, nil)
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)

	require.NoError(t, lib.books.UpdateOne("Oliver Twist", map[string]any{
		"rating":   5,
		"in_stock": true,
		"title":    "Oliver Twist",
	}))

	want := oliverTwist
	want.Rating = 5
	want.InStock = true
	got, err := lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.True(t, Equal(want, *got))

	// nested values are upserted, nil removes optional fields
	require.NoError(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"editor": Author{Name: "Boz"}}))
	got, err = lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	require.NotNil(t, got.Editor)
	assert.Equal(t, "Boz", got.Editor.Name)
	boz, err := lib.authors.SelectOne("Boz")
	require.NoError(t, err)
	assert.NotNil(t, boz)

	require.NoError(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"editor": nil, "rating": "4.5"}))
	got, err = lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.Nil(t, got.Editor)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, oliverTwist.Author, got.Author)
}

func TestUpdateErrors(t *testing.T) {
	lib := newLibrary(t, nil)
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)

	assert.ErrorIs(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"pages": 608}), ErrInvalidArgument)
	assert.ErrorIs(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"title": "Nicholas Nickleby"}), ErrInvalidArgument)
	assert.ErrorIs(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"rating": nil}), ErrInvalidArgument)
	assert.ErrorIs(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"tags": 3}), ErrInvalidArgument)
	assert.ErrorIs(t, lib.books.UpdateOne("Oliver Twist", map[string]any{"rating": "high"}), ErrCoercion)
	assert.ErrorIs(t, lib.books.UpdateOne("", map[string]any{"rating": 1}), ErrInvalidKey)

	got, err := lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.True(t, Equal(oliverTwist, *got))
}

type counter struct {
	ID    int8 `kv:"id"`
	Count uint `kv:"count"`
	Score int  `kv:"score"`
}

func TestNumericArgumentsMustFit(t *testing.T) {
	lib := newLibrary(t, nil)
	counters, err := RegisterCollection[counter](lib.store, "id")
	require.NoError(t, err)
	_, err = counters.InsertOne(counter{ID: 44, Count: 1, Score: 1})
	require.NoError(t, err)

	// 300 wraps to 44 as an int8
	got, err := counters.SelectOne(300)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Nil(t, got)
	_, err = counters.SelectMany([]any{44, 300})
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, counters.DeleteOne(300), ErrInvalidKey)
	assert.ErrorIs(t, counters.UpdateOne(300, map[string]any{"score": 5}), ErrInvalidKey)

	got, err = counters.SelectOne(44.0)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.ErrorIs(t, counters.UpdateOne(44, map[string]any{"count": -1}), ErrInvalidArgument)
	assert.ErrorIs(t, counters.UpdateOne(44, map[string]any{"score": 2.9}), ErrInvalidArgument)
	assert.ErrorIs(t, counters.UpdateOne(44, map[string]any{"score": uint64(math.MaxUint64)}), ErrInvalidArgument)

	got, err = counters.SelectOne(44)
	require.NoError(t, err)
	assert.Equal(t, counter{ID: 44, Count: 1, Score: 1}, *got)

	require.NoError(t, counters.UpdateOne(int64(44), map[string]any{"count": 7.0, "score": int64(-3)}))
	got, err = counters.SelectOne(44)
	require.NoError(t, err)
	assert.Equal(t, counter{ID: 44, Count: 7, Score: -3}, *got)
}

func TestUpdateAbsentRecordIsNoop(t *testing.T) {
	lib := newLibrary(t, nil)

	require.NoError(t, lib.books.UpdateOne("Ulysses", map[string]any{
		"rating": 1,
		"editor": Author{Name: "Sylvia Beach"},
	}))

	book, err := lib.books.SelectOne("Ulysses")
	require.NoError(t, err)
	assert.Nil(t, book)
	editor, err := lib.authors.SelectOne("Sylvia Beach")
	require.NoError(t, err)
	assert.Nil(t, editor)
}

func TestDanglingReferences(t *testing.T) {
	lib := newLibrary(t, nil)
	book := oliverTwist
	book.Editor = &Author{Name: "Boz"}
	_, err := lib.books.InsertOne(book)
	require.NoError(t, err)

	require.NoError(t, lib.authors.DeleteMany([]any{"Charles Dickens", "Boz", "Nobody"}))

	got, err := lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Author{}, got.Author)
	assert.Nil(t, got.Editor)
	assert.Equal(t, book.Title, got.Title)
}

func TestSharedNestedRecords(t *testing.T) {
	lib := newLibrary(t, nil)
	dickens := Author{Name: "Charles Dickens", ActiveYears: [2]int{1833, 1870}}
	require.NoError(t, lib.books.InsertMany([]Book{
		{Title: "Oliver Twist", Author: dickens},
		{Title: "Bleak House", Author: dickens, Editor: &dickens},
	}))

	books, err := lib.books.SelectAll()
	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, b := range books {
		assert.Equal(t, dickens, b.Author)
	}
	assert.Equal(t, &dickens, books[0].Editor)
}

func TestInsertManyPartialDurability(t *testing.T) {
	lib := newLibrary(t, nil)

	records := make([]Book, 10)
	for i := range records {
		records[i] = Book{Title: fmt.Sprintf("volume %d", i), Author: Author{Name: "anon"}}
	}
	records[5].Title = ""

	err := lib.books.InsertMany(records)
	require.ErrorIs(t, err, ErrInvalidKey)

	books, err := lib.books.SelectAll()
	require.NoError(t, err)
	require.Len(t, books, 5)
	for i, b := range books {
		assert.Equal(t, fmt.Sprintf("volume %d", i), b.Title)
	}
}

type measurement struct {
	ID     int       `kv:"id"`
	Values []float64 `kv:"values"`
}

func TestInsertManyCoercionFailure(t *testing.T) {
	lib := newLibrary(t, nil)
	c, err := RegisterCollection[measurement](lib.store, "id")
	require.NoError(t, err)

	records := []measurement{
		{ID: 1, Values: []float64{1}},
		{ID: 2, Values: []float64{2}},
		{ID: 3, Values: []float64{math.NaN()}},
		{ID: 4, Values: []float64{4}},
	}
	err = c.InsertMany(records)
	require.ErrorIs(t, err, ErrCoercion)

	stored, err := c.SelectMany([]any{1, 2, 3, "4"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, records[:2], stored)
}

func TestTTLResolution(t *testing.T) {
	lib := newLibrary(t, []CollectionOption{WithTTL(10 * time.Minute)}, WithDefaultTTL(time.Hour))

	_, err := lib.authors.InsertOne(Author{Name: "store default"})
	require.NoError(t, err)
	_, err = lib.authors.InsertOne(Author{Name: "per call"}, TTL(time.Minute))
	require.NoError(t, err)
	_, err = lib.books.InsertOne(Book{Title: "collection", Author: Author{Name: "nested"}})
	require.NoError(t, err)

	alive := func() []string {
		authors, err := lib.authors.SelectAll()
		require.NoError(t, err)
		books, err := lib.books.SelectAll()
		require.NoError(t, err)
		var names []string
		for _, a := range authors {
			names = append(names, a.Name)
		}
		for _, b := range books {
			names = append(names, b.Title)
		}
		return names
	}

	assert.ElementsMatch(t, []string{"store default", "per call", "nested", "collection"}, alive())

	lib.clock.Advance(2 * time.Minute)
	assert.ElementsMatch(t, []string{"store default", "nested", "collection"}, alive())

	lib.clock.Advance(9 * time.Minute)
	assert.ElementsMatch(t, []string{"store default"}, alive())

	lib.clock.Advance(50 * time.Minute)
	assert.Empty(t, alive())
}

func TestNegativeTTLRejected(t *testing.T) {
	lib := newLibrary(t, []CollectionOption{WithTTL(-time.Minute)})

	_, err := lib.books.InsertOne(oliverTwist)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, lib.books.InsertMany([]Book{oliverTwist}), ErrInvalidArgument)

	_, err = lib.authors.InsertOne(Author{Name: "per call"}, TTL(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, lib.authors.InsertMany([]Author{{Name: "per call"}}, TTL(-time.Second)), ErrInvalidArgument)

	// nothing reached the store, not even the nested author
	authors, err := lib.authors.SelectAll()
	require.NoError(t, err)
	assert.Empty(t, authors)

	_, err = lib.authors.InsertOne(Author{Name: "Charles Dickens"})
	require.NoError(t, err)
	assert.ErrorIs(t, lib.authors.UpdateOne("Charles Dickens", map[string]any{"active_years": [2]int{1833, 1870}}, TTL(-time.Second)), ErrInvalidArgument)

	lib.clock.Advance(24 * time.Hour)
	got, err := lib.authors.SelectOne("Charles Dickens")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, [2]int{}, got.ActiveYears)

	withDefault := newLibrary(t, nil, WithDefaultTTL(-time.Hour))
	_, err = withDefault.authors.InsertOne(Author{Name: "store default"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNoTTLByDefault(t *testing.T) {
	lib := newLibrary(t, nil)
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)

	lib.clock.Advance(24 * 365 * time.Hour)
	book, err := lib.books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.NotNil(t, book)
}

type tally struct {
	ID string `kv:"id"`
	A  int    `kv:"a"`
	B  int    `kv:"b"`
	C  int    `kv:"c"`
	D  int    `kv:"d"`
}

func TestUpdateLocksSerializeUpdates(t *testing.T) {
	lib := newLibrary(t, nil, WithUpdateLocks(5*time.Second))
	c, err := RegisterCollection[tally](lib.store, "id")
	require.NoError(t, err)
	_, err = c.InsertOne(tally{ID: "t"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, field := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(field string) {
			defer wg.Done()
			for i := 1; i <= 10; i++ {
				assert.NoError(t, c.UpdateOne("t", map[string]any{field: i}))
			}
		}(field)
	}
	wg.Wait()

	got, err := c.SelectOne("t")
	require.NoError(t, err)
	assert.Equal(t, tally{ID: "t", A: 10, B: 10, C: 10, D: 10}, *got)

	locks, err := lib.local.Scan(lockPrefix)
	require.NoError(t, err)
	assert.Empty(t, locks)
}

func TestUpdateLockTimeout(t *testing.T) {
	lib := newLibrary(t, nil, WithUpdateLocks(50*time.Millisecond))
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)

	key, err := lib.books.Key("Oliver Twist")
	require.NoError(t, err)
	ok, _, err := lockmgr.NewLockManager(lib.local).AcquireLock(lockPrefix+key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = lib.books.UpdateOne("Oliver Twist", map[string]any{"rating": 1})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestConcurrentInserts(t *testing.T) {
	lib := newLibrary(t, nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := lib.books.InsertOne(Book{
					Title:  fmt.Sprintf("book %d-%d", w, i),
					Author: Author{Name: fmt.Sprintf("author %d", w)},
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	books, err := lib.books.SelectAll()
	require.NoError(t, err)
	assert.Len(t, books, 200)
	authors, err := lib.authors.SelectAll()
	require.NoError(t, err)
	assert.Len(t, authors, 8)
}

func TestClear(t *testing.T) {
	lib := newLibrary(t, nil)
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)
	require.NoError(t, lib.local.Set("unrelated", []byte("x")))

	require.NoError(t, lib.store.Clear())

	books, err := lib.books.SelectAll()
	require.NoError(t, err)
	assert.Empty(t, books)
	ok, err := lib.local.Has("unrelated")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOperationMetrics(t *testing.T) {
	lib := newLibrary(t, nil)
	_, err := lib.books.InsertOne(oliverTwist)
	require.NoError(t, err)
	_, _ = lib.books.SelectOne("")

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()
	assert.Contains(t, out, `kvorm_operations_total{collection="book",op="insert_one"}`)
	assert.Contains(t, out, `kvorm_operation_errors_total{collection="book",op="select_one"}`)
	assert.Contains(t, out, `kvorm_operation_duration_seconds_bucket{collection="book",op="insert_one"`)
}
