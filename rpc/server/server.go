package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
	"github.com/ValentinKolb/kvorm/lib/db/engines/maple"
	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/lib/store/lstore"
	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/ValentinKolb/kvorm/rpc/serializer"
	"github.com/ValentinKolb/kvorm/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates, the database below the store
// and the adapter that handles requests for the store
type serverShard struct {
	DB      db.KVDB
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer hosts local stores and lock managers behind a transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	timers     gometrics.Registry
}

// NewRPCServer creates a new RPC server
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		http.NewHttpServerTransport(),
//		serializer.NewCBORSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
		timers:     gometrics.DefaultRegistry,
	}
}

// Handle decodes a request for shardId, lets the shard's adapter answer it and encodes the response
func (s *RPCServer) Handle(shardId uint64, req []byte) []byte {
	var (
		msg     common.Message
		respMsg *common.Message
		start   = time.Now()
	)

	if shard, ok := s.shards.Load(shardId); !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = shard.Adapter.Handle(&msg, shard.Store)
		gometrics.GetOrRegisterTimer("rpc."+msg.MsgType.String(), s.timers).UpdateSince(start)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// Init creates all shards and restores their snapshots
func (s *RPCServer) Init() error {
	gcInterval := time.Duration(s.config.GCIntervalMillisecond) * time.Millisecond

	for _, shardConfig := range s.config.Shards {
		var adapter IRPCServerAdapter
		switch shardConfig.Type {
		case common.ShardTypeLocalIStore:
			adapter = NewIStoreServerAdapter()
		case common.ShardTypeLocalILockManager:
			adapter = NewLockManagerServerAdapter()
		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}

		kv := maple.NewMapleDB(&maple.DBOptions{GCInterval: gcInterval})
		if err := s.restore(shardConfig.ShardID, kv); err != nil {
			return err
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			DB:      kv,
			Store:   lstore.NewLocalStore(func() db.KVDB { return kv }),
			Adapter: adapter,
		})
		Logger.Infof("created %s for shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	s.transport.RegisterHandler(s.Handle)
	return nil
}

// Serve initializes the server and starts the transport layer.
// It returns after Shutdown was called.
func (s *RPCServer) Serve() error {
	if err := s.Init(); err != nil {
		return err
	}
	Logger.Infof("kvorm server ready (serializer %s)%s", s.serializer.Name(), s.config.String())
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport, writes the snapshots and closes all stores
func (s *RPCServer) Shutdown(ctx context.Context) error {
	errs := []error{s.transport.Shutdown(ctx)}

	s.shards.Range(func(id uint64, shard serverShard) bool {
		errs = append(errs, s.snapshot(id, shard.DB), shard.Store.Close())
		return true
	})
	s.shards.Clear()

	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Snapshots
// --------------------------------------------------------------------------

func (s *RPCServer) snapshotPath(shardId uint64) string {
	return filepath.Join(s.config.SnapshotDir, fmt.Sprintf("shard-%d.maple", shardId))
}

// restore loads the snapshot of a shard if snapshots are enabled and one exists
func (s *RPCServer) restore(shardId uint64, kv db.KVDB) error {
	if s.config.SnapshotDir == "" {
		return nil
	}
	f, err := os.Open(s.snapshotPath(shardId))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	if err = kv.Load(f); err != nil {
		return fmt.Errorf("failed to load snapshot of shard %d: %w", shardId, err)
	}
	Logger.Infof("restored shard %d with %d entries", shardId, kv.GetInfo().Entries)
	return nil
}

// snapshot writes the content of a shard to disk if snapshots are enabled
func (s *RPCServer) snapshot(shardId uint64, kv db.KVDB) error {
	if s.config.SnapshotDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.config.SnapshotDir, 0o755); err != nil {
		return err
	}

	path := s.snapshotPath(shardId)
	f, err := os.CreateTemp(s.config.SnapshotDir, filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if err = kv.Save(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err = f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	Logger.Infof("saved snapshot of shard %d", shardId)
	return os.Rename(f.Name(), path)
}
