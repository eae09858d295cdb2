package lockmgr

import (
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
	"github.com/ValentinKolb/kvorm/lib/db/engines/maple"
	"github.com/ValentinKolb/kvorm/lib/store/lstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) ILockManager {
	s := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
	t.Cleanup(func() { _ = s.Close() })
	return NewLockManager(s)
}

func TestAcquireRelease(t *testing.T) {
	lm := newTestManager(t)

	ok, owner, err := lm.AcquireLock("resource", 0)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = uuid.ParseBytes(owner)
	assert.NoError(t, err, "owner id should be a uuid")

	ok, _, err = lm.AcquireLock("resource", 0)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail")

	released, err := lm.ReleaseLock("resource", []byte("someone-else"))
	require.NoError(t, err)
	assert.False(t, released, "foreign owner must not release")

	released, err = lm.ReleaseLock("resource", owner)
	require.NoError(t, err)
	assert.True(t, released)

	ok, _, err = lm.AcquireLock("resource", 0)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free again")
}

func TestReleaseMissingLock(t *testing.T) {
	lm := newTestManager(t)
	released, err := lm.ReleaseLock("missing", []byte("owner"))
	require.NoError(t, err)
	assert.True(t, released)
}

func TestLockTimeout(t *testing.T) {
	lm := newTestManager(t)

	ok, _, err := lm.AcquireLock("resource", 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	ok, _, err = lm.AcquireLock("resource", 0)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable")
}
