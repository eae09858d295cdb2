// Package client implements store.IStore and lockmgr.ILockManager on top of
// the rpc transport, so the object mapper and the cli can work against a
// remote `kvorm serve` exactly like against a local store.
//
// Store errors returned by the server keep their return code: the caller gets
// a *store.Error just like from a local store. Network failures are returned
// as they come from the transport.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Endpoints:     []string{"localhost:8080"},
//		TimeoutSecond: 5,
//		RetryCount:    3,
//	}
//
//	s, _ := client.NewRPCStore(100, config, http.NewHttpClientTransport(), serializer.NewCBORSerializer())
//	defer s.Close()
//	s.Set("mykey", []byte("myvalue"))
//	value, exists, _ := s.Get("mykey")
//
//	locks, _ := client.NewRPCLockMgr(200, config, http.NewHttpClientTransport(), serializer.NewCBORSerializer())
//	acquired, ownerID, _ := locks.AcquireLock("mylock", 30*time.Second)
//	if acquired {
//		locks.ReleaseLock("mylock", ownerID)
//	}
package client
