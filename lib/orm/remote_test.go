package orm_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/lib/orm"
	"github.com/ValentinKolb/kvorm/rpc/client"
	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/ValentinKolb/kvorm/rpc/serializer"
	"github.com/ValentinKolb/kvorm/rpc/server"
	"github.com/ValentinKolb/kvorm/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Author struct {
	Name        string `kv:"name"`
	ActiveYears [2]int `kv:"active_years"`
}

type Book struct {
	Title     string     `kv:"title"`
	Author    Author     `kv:"author"`
	Rating    float64    `kv:"rating"`
	InStock   bool       `kv:"in_stock"`
	Published *time.Time `kv:"published,date"`
}

func remoteStore(t *testing.T, opts ...orm.StoreOption) *orm.Store {
	ser := serializer.NewCBORSerializer()
	srv := server.NewRPCServer(common.ServerConfig{
		Shards: []common.ServerShard{{ShardID: 1, Type: common.ShardTypeLocalIStore}},
	}, http.NewHttpServerTransport(), ser)
	require.NoError(t, srv.Init())

	ts := httptest.NewServer(http.NewHandler(srv.Handle, false))
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	config := common.ClientConfig{Endpoints: []string{ts.URL}, TimeoutSecond: 5, RetryCount: 1}
	return orm.NewStore(client.Dialer(1, config, http.NewHttpClientTransport, ser), opts...)
}

func TestRemoteBookScenario(t *testing.T) {
	s := remoteStore(t, orm.WithUpdateLocks(time.Second))
	authors, err := orm.RegisterCollection[Author](s, "name")
	require.NoError(t, err)
	books, err := orm.RegisterCollection[Book](s, "title")
	require.NoError(t, err)

	published := time.Date(1838, 11, 9, 0, 0, 0, 0, time.UTC)
	oliver := Book{
		Title:     "Oliver Twist",
		Author:    Author{Name: "Charles Dickens", ActiveYears: [2]int{1220, 1280}},
		Rating:    2,
		Published: &published,
	}
	_, err = books.InsertOne(oliver)
	require.NoError(t, err)

	got, err := books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, orm.Equal(oliver, *got))

	partial, err := books.SelectOnePartial("Oliver Twist", []string{"title", "author", "in_stock"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Oliver Twist", "author": "author_%&_Charles Dickens", "in_stock": false}, partial)

	require.NoError(t, books.UpdateOne("Oliver Twist", map[string]any{"in_stock": true}))
	got, err = books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.True(t, got.InStock)

	require.NoError(t, books.DeleteOne("Oliver Twist"))
	got, err = books.SelectOne("Oliver Twist")
	require.NoError(t, err)
	assert.Nil(t, got)

	author, err := authors.SelectOne("Charles Dickens")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, oliver.Author, *author)

	require.NoError(t, s.Clear())
	all, err := authors.SelectAll()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.False(t, s.Connection().IsOpen())
}

func TestRemoteUnreachable(t *testing.T) {
	config := common.ClientConfig{Endpoints: []string{"127.0.0.1:1"}, TimeoutSecond: 1, RetryCount: 0}
	s := orm.NewStore(client.Dialer(1, config, http.NewHttpClientTransport, serializer.NewCBORSerializer()))
	authors, err := orm.RegisterCollection[Author](s, "name")
	require.NoError(t, err)

	_, err = authors.SelectOne("Charles Dickens")
	assert.Error(t, err)
}
