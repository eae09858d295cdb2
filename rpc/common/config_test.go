package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerConfigString(t *testing.T) {
	cfg := ServerConfig{
		Shards: []ServerShard{
			{ShardID: 100, Type: ShardTypeLocalIStore},
			{ShardID: 200, Type: ShardTypeLocalILockManager},
		},
		Endpoint:              ":8080",
		TimeoutSecond:         5,
		GCIntervalMillisecond: 250,
		LogLevel:              "debug",
	}

	out := cfg.String()
	assert.Contains(t, out, "RPC SERVER")
	assert.Contains(t, out, "Snapshots")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "250 ms")
	assert.Contains(t, out, "local lock manager")

	cfg.SnapshotDir = "/var/lib/kvorm"
	assert.Contains(t, cfg.String(), "/var/lib/kvorm")
}

func TestClientConfigString(t *testing.T) {
	cfg := ClientConfig{
		Endpoints:     []string{"http://a:8080", "http://b:8080"},
		TimeoutSecond: 3,
		RetryCount:    2,
	}

	out := cfg.String()
	assert.Contains(t, out, "CLIENT CONFIGURATION")
	assert.Contains(t, out, "http://b:8080")
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "  ") {
			assert.Contains(t, line, ": ")
		}
	}
}
