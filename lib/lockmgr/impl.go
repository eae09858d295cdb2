package lockmgr

import (
	"bytes"
	"time"

	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("lockmgr")

type lockMgrImpl struct {
	store store.IStore
}

// NewLockManager creates a lock manager that keeps its locks in s
func NewLockManager(s store.IStore) ILockManager {
	return &lockMgrImpl{
		store: s,
	}
}

func (lm *lockMgrImpl) AcquireLock(key string, timeout time.Duration) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	// set the value only if it doesn't exist
	if err = lm.store.SetEIfUnset(key, ownerID, 0, timeout); err != nil {
		Logger.Warningf("setting lock %q failed: %v", key, err)
		return false, nil, err
	}

	value, found, err := lm.store.Get(key)
	if err != nil {
		return false, nil, err
	}

	// the lock is ours only if our owner id was stored
	if found && bytes.Equal(value, ownerID) {
		return true, ownerID, nil
	}
	return false, nil, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	value, ok, err := lm.store.Get(key)
	if err != nil || !ok {
		return err == nil, err
	}

	if !bytes.Equal(ownerID, value) {
		return false, nil
	}

	err = lm.store.Delete(key)
	return err == nil, err
}
