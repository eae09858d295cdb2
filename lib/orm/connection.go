package orm

import (
	"sync"

	"github.com/ValentinKolb/kvorm/lib/store"
)

// Connection hands out a store handle to operations.
// The handle is dialed on first use and closed when the last user leaves,
// unless the connection was opened explicitly with Open.
type Connection struct {
	dial store.Dialer

	mu     sync.Mutex
	handle store.IStore
	users  int
	pinned bool
}

// NewConnection creates a closed connection that uses dial to open handles
func NewConnection(dial store.Dialer) *Connection {
	return &Connection{dial: dial}
}

// IsOpen reports whether a handle is currently open
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Open dials the store (if needed) and keeps the handle open until Close is called.
// Calling Open on an open connection is a no-op.
func (c *Connection) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(); err != nil {
		return err
	}
	c.pinned = true
	return nil
}

// Close releases an explicitly opened handle. A handle in use is closed
// as soon as the last running operation returns.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = false
	if c.users > 0 {
		return nil
	}
	return c.release()
}

// With runs fn with an open handle. The handle is closed on every exit path
// of fn unless other users hold it or the connection is pinned.
func (c *Connection) With(fn func(s store.IStore) error) (err error) {
	c.mu.Lock()
	if err = c.ensure(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.users++
	handle := c.handle
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.users--
		if c.users > 0 || c.pinned {
			return
		}
		if closeErr := c.release(); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				Logger.Warningf("closing store handle failed: %v", closeErr)
			}
		}
	}()

	return fn(handle)
}

// ensure dials a handle, c.mu must be held
func (c *Connection) ensure() error {
	if c.handle != nil {
		return nil
	}
	handle, err := c.dial()
	if err != nil {
		return err
	}
	c.handle = handle
	return nil
}

// release closes the handle, c.mu must be held
func (c *Connection) release() error {
	if c.handle == nil {
		return nil
	}
	handle := c.handle
	c.handle = nil
	return handle.Close()
}
