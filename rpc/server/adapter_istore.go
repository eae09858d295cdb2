package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTKVSet:
		return common.NewResponse(req.MsgType, s.Set(req.Key, req.Value))
	case common.MsgTKVSetE:
		return common.NewResponse(req.MsgType, s.SetE(req.Key, req.Value, req.ExpireIn, req.DeleteIn))
	case common.MsgTKVSetEIfUnset:
		return common.NewResponse(req.MsgType, s.SetEIfUnset(req.Key, req.Value, req.ExpireIn, req.DeleteIn))
	case common.MsgTKVMSetE:
		if len(req.Keys) != len(req.Values) {
			return common.NewErrorResponse(fmt.Sprintf("msetE: %d keys but %d values", len(req.Keys), len(req.Values)))
		}
		entries := make([]store.KeyValue, len(req.Keys))
		for i := range req.Keys {
			entries[i] = store.KeyValue{Key: req.Keys[i], Value: req.Values[i]}
		}
		return common.NewResponse(req.MsgType, s.MSetE(entries, req.ExpireIn, req.DeleteIn))
	case common.MsgTKVExpire:
		return common.NewResponse(req.MsgType, s.Expire(req.Key))
	case common.MsgTKVDelete:
		return common.NewResponse(req.MsgType, s.Delete(req.Keys...))
	case common.MsgTKVGet:
		val, ok, err := s.Get(req.Key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTKVMGet:
		values, found, err := s.MGet(req.Keys)
		return common.NewMGetResponse(values, found, err)
	case common.MsgTKVHas:
		ok, err := s.Has(req.Key)
		return common.NewHasResponse(ok, err)
	case common.MsgTKVScan:
		keys, err := s.Scan(req.Key)
		return common.NewScanResponse(keys, err)
	case common.MsgTKVFlush:
		return common.NewResponse(req.MsgType, s.FlushAll())
	case common.MsgTKVInfo:
		info, err := s.GetDBInfo()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(info)
		return common.NewInfoResponse(meta, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
