package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeLocalIStore       ServerShardType = "local store"
	ShardTypeLocalILockManager ServerShardType = "local lock manager"
)

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects the adapter serving the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters of an rpc server.
type ServerConfig struct {
	Shards []ServerShard

	// HTTP api settings
	Endpoint      string
	TimeoutSecond int64

	// Engine settings
	GCIntervalMillisecond int64
	SnapshotDir           string // empty disables snapshots

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var w configWriter
	w.section("RPC Server")
	w.field("Endpoint", c.Endpoint)
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	w.section("Engine")
	w.field("GC Interval", fmt.Sprintf("%d ms", c.GCIntervalMillisecond))
	snapshots := c.SnapshotDir
	if snapshots == "" {
		snapshots = "disabled"
	}
	w.field("Snapshots", snapshots)

	w.section("Logging")
	w.field("Log Level", c.LogLevel)

	w.section("Shards")
	for _, shard := range c.Shards {
		w.field(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}
	return w.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints     []string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var w configWriter
	w.section("Client Configuration")
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	w.field("Retry Count", strconv.Itoa(c.RetryCount))

	w.section("Endpoints")
	for i, endpoint := range c.Endpoints {
		w.field(strconv.Itoa(i), endpoint)
	}
	return w.String()
}

// configWriter renders configs as titled sections of aligned name/value rows.
type configWriter struct {
	strings.Builder
}

func (w *configWriter) section(title string) {
	fmt.Fprintf(w, "\n%s\n", strings.ToUpper(title))
}

func (w *configWriter) field(name, value string) {
	fmt.Fprintf(w, "  %-22s: %s\n", name, value)
}
