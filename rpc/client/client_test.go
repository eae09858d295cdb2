package client

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/ValentinKolb/kvorm/rpc/serializer"
	"github.com/ValentinKolb/kvorm/rpc/server"
	"github.com/ValentinKolb/kvorm/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	storeShard = 100
	lockShard  = 200
)

// startServer runs an rpc server behind an httptest server
func startServer(t *testing.T, s serializer.IRPCSerializer) common.ClientConfig {
	srv := server.NewRPCServer(common.ServerConfig{
		Shards: []common.ServerShard{
			{ShardID: storeShard, Type: common.ShardTypeLocalIStore},
			{ShardID: lockShard, Type: common.ShardTypeLocalILockManager},
		},
	}, http.NewHttpServerTransport(), s)
	require.NoError(t, srv.Init())

	ts := httptest.NewServer(http.NewHandler(srv.Handle, false))
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	return common.ClientConfig{Endpoints: []string{ts.URL}, TimeoutSecond: 5, RetryCount: 1}
}

func TestRPCStore(t *testing.T) {
	for _, name := range []string{"json", "gob", "cbor"} {
		t.Run(name, func(t *testing.T) {
			ser, err := serializer.New(name)
			require.NoError(t, err)
			config := startServer(t, ser)

			s, err := NewRPCStore(storeShard, config, http.NewHttpClientTransport(), ser)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Set("book_%&_1", []byte("one")))
			value, ok, err := s.Get("book_%&_1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("one"), value)

			require.NoError(t, s.MSetE([]store.KeyValue{
				{Key: "book_%&_2", Value: []byte("two")},
				{Key: "author_%&_1", Value: []byte("dickens")},
			}, 0, time.Minute))

			values, found, err := s.MGet([]string{"book_%&_2", "book_%&_404", "author_%&_1"})
			require.NoError(t, err)
			assert.Equal(t, []bool{true, false, true}, found)
			assert.Equal(t, []byte("two"), values[0])
			assert.Equal(t, []byte("dickens"), values[2])

			keys, err := s.Scan("book_%&_")
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"book_%&_1", "book_%&_2"}, keys)

			require.NoError(t, s.Expire("book_%&_1"))
			has, err := s.Has("book_%&_1")
			require.NoError(t, err)
			assert.True(t, has)
			_, ok, err = s.Get("book_%&_1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Delete("book_%&_1", "book_%&_2"))
			keys, err = s.Scan("book_%&_")
			require.NoError(t, err)
			assert.Empty(t, keys)

			info, err := s.GetDBInfo()
			require.NoError(t, err)
			assert.Equal(t, 1, info.Entries)

			require.NoError(t, s.FlushAll())
			has, err = s.Has("author_%&_1")
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestRPCStoreErrors(t *testing.T) {
	ser := serializer.NewCBORSerializer()
	config := startServer(t, ser)

	s, err := NewRPCStore(storeShard, config, http.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer s.Close()

	// store errors keep their code across the wire
	err = s.SetE("key", []byte("v"), -time.Second, 0)
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, store.RetCInvalidOperation, storeErr.Code)

	// unknown shard
	unknown, err := NewRPCStore(999, config, http.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer unknown.Close()
	_, _, err = unknown.Get("key")
	assert.ErrorContains(t, err, "shard 999 not found")

	// wrong adapter
	_, err = s.(*rpcStore).invoke(common.NewAcquireRequest("lock", 0))
	assert.ErrorContains(t, err, "Unsupported message type")
}

func TestRPCLockMgr(t *testing.T) {
	ser := serializer.NewCBORSerializer()
	config := startServer(t, ser)

	locks, err := NewRPCLockMgr(lockShard, config, http.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer locks.Close()

	ok, owner, err := locks.AcquireLock("resource", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = locks.AcquireLock("resource", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := locks.ReleaseLock("resource", owner)
	require.NoError(t, err)
	assert.True(t, released)
}

func TestUnreachableServer(t *testing.T) {
	ser := serializer.NewCBORSerializer()
	s, err := NewRPCStore(storeShard, common.ClientConfig{
		Endpoints:     []string{"127.0.0.1:1"},
		TimeoutSecond: 1,
		RetryCount:    2,
	}, http.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Get("key")
	assert.Error(t, err)
}

func TestMetricsEndpoints(t *testing.T) {
	ser := serializer.NewCBORSerializer()
	config := startServer(t, ser)

	s, err := NewRPCStore(storeShard, config, http.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set("key", []byte("v")))

	for path, want := range map[string]string{
		"/metrics": "kvorm_rpc_requests_total",
		"/stats":   "rpc.set",
	} {
		resp, err := nethttp.Get(config.Endpoints[0] + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), want)
	}
}
