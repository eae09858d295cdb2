// Package server implements the rpc server: a set of shards, each a local
// store backed by a maple database and served either as a key-value store or as
// a lock manager.
//
// Requests arrive through a transport as (shard id, bytes). The server decodes
// them, hands them to the shard's adapter and records the handling time per
// message type in a go-metrics timer (served at /stats by the http transport).
//
// With a snapshot directory configured, every shard is restored from
// shard-<id>.maple on start and written back on Shutdown.
//
// Usage Example:
//
//	config := common.ServerConfig{
//		Shards: []common.ServerShard{
//			{ShardID: 100, Type: common.ShardTypeLocalIStore},
//			{ShardID: 200, Type: common.ShardTypeLocalILockManager},
//		},
//		Endpoint: "0.0.0.0:8080",
//		LogLevel: "info",
//	}
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewCBORSerializer())
//	go func() { <-ctx.Done(); s.Shutdown(context.Background()) }()
//	if err := s.Serve(); err != nil {
//		log.Fatal(err)
//	}
package server
