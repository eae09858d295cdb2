package serve

import (
	"testing"

	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShards(t *testing.T) {
	shards, err := parseShards("100=lstore, 200=lockmgr,300=lockmgr(lstore)")
	require.NoError(t, err)
	assert.Equal(t, []common.ServerShard{
		{ShardID: 100, Type: common.ShardTypeLocalIStore},
		{ShardID: 200, Type: common.ShardTypeLocalILockManager},
		{ShardID: 300, Type: common.ShardTypeLocalILockManager},
	}, shards)

	for _, bad := range []string{"100", "x=lstore", "100=remote", "100=lstore=1"} {
		_, err := parseShards(bad)
		assert.Error(t, err, bad)
	}
}
