package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/ValentinKolb/kvorm/rpc/serializer"
	"github.com/ValentinKolb/kvorm/rpc/transport"
)

// NewRPCStore creates a store.IStore that forwards every call to shardId of a remote server
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// Dialer returns a store.Dialer that opens a new remote store for every handle.
// newTransport is called once per handle.
func Dialer(
	shardId uint64,
	config common.ClientConfig,
	newTransport func() transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) store.Dialer {
	return func() (store.IStore, error) {
		return NewRPCStore(shardId, config, newTransport(), serializer)
	}
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) error {
	_, err := i.invoke(common.NewSetRequest(key, value))
	return err
}

func (i *rpcStore) SetE(key string, value []byte, expireIn, deleteIn time.Duration) error {
	_, err := i.invoke(common.NewSetERequest(key, value, expireIn, deleteIn))
	return err
}

func (i *rpcStore) SetEIfUnset(key string, value []byte, expireIn, deleteIn time.Duration) error {
	_, err := i.invoke(common.NewSetEIfUnsetRequest(key, value, expireIn, deleteIn))
	return err
}

func (i *rpcStore) MSetE(entries []store.KeyValue, expireIn, deleteIn time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := i.invoke(common.NewMSetERequest(entries, expireIn, deleteIn))
	return err
}

func (i *rpcStore) Expire(key string) error {
	_, err := i.invoke(common.NewExpireRequest(key))
	return err
}

func (i *rpcStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := i.invoke(common.NewDeleteRequest(keys))
	return err
}

func (i *rpcStore) Get(key string) ([]byte, bool, error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) MGet(keys []string) ([][]byte, []bool, error) {
	if len(keys) == 0 {
		return [][]byte{}, []bool{}, nil
	}
	resp, err := i.invoke(common.NewMGetRequest(keys))
	if err != nil {
		return nil, nil, err
	}
	if len(resp.Oks) != len(keys) || len(resp.Values) != len(keys) {
		return nil, nil, fmt.Errorf("rpc: mget returned %d results for %d keys", len(resp.Oks), len(keys))
	}
	return resp.Values, resp.Oks, nil
}

func (i *rpcStore) Has(key string) (bool, error) {
	resp, err := i.invoke(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Scan(prefix string) ([]string, error) {
	resp, err := i.invoke(common.NewScanRequest(prefix))
	if err != nil {
		return nil, err
	}
	if resp.Keys == nil {
		return []string{}, nil
	}
	return resp.Keys, nil
}

func (i *rpcStore) FlushAll() error {
	_, err := i.invoke(common.NewFlushRequest())
	return err
}

func (i *rpcStore) GetDBInfo() (db.DatabaseInfo, error) {
	var info db.DatabaseInfo
	resp, err := i.invoke(common.NewInfoRequest())
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(resp.Meta, &info)
	return info, err
}
