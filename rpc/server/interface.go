package server

import (
	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/rpc/common"
)

// IRPCServerAdapter executes decoded requests of one shard kind against the shard's store
type IRPCServerAdapter interface {
	// Handle runs req against s. Failures become error responses.
	Handle(req *common.Message, s store.IStore) (resp *common.Message)
}
