// Package transport defines the interfaces between the rpc client/server and
// the network. Requests are opaque byte slices addressed to a shard id; the
// serializer on each side gives them meaning.
//
// The only implementation is HTTP (package http).
package transport
