package client

import (
	"time"

	"github.com/ValentinKolb/kvorm/lib/lockmgr"
	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/ValentinKolb/kvorm/rpc/serializer"
	"github.com/ValentinKolb/kvorm/rpc/transport"
)

// RPCLockManager is a remote lockmgr.ILockManager that owns a transport
type RPCLockManager interface {
	lockmgr.ILockManager
	Close() error
}

// NewRPCLockMgr creates a lock manager that forwards every call to shardId of a remote server
func NewRPCLockMgr(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (RPCLockManager, error) {

	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcLockMgr{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcLockMgr struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the lockmgr package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcLockMgr) AcquireLock(key string, timeout time.Duration) (bool, []byte, error) {
	resp, err := i.invoke(common.NewAcquireRequest(key, timeout))
	if err != nil {
		return false, nil, err
	}
	return resp.Ok, resp.Value, nil
}

func (i *rpcLockMgr) ReleaseLock(key string, ownerID []byte) (bool, error) {
	resp, err := i.invoke(common.NewReleaseRequest(key, ownerID))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
