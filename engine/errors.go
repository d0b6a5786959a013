package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/mherod/getcookie/lockguard"
)

// Sentinel errors that classifyStoreError wraps raw store errors in, so a
// strategy can match them with errors.Is. The built-in strategies and the
// Dispatcher isolate failures and do not return these to their callers.
var (
	ErrNotFound       = errors.New("engine: cookie store not found")
	ErrLocked         = errors.New("engine: cookie store locked")
	ErrPermission     = errors.New("engine: permission denied")
	ErrCorrupt        = errors.New("engine: corrupt cookie data")
	ErrKeyUnavailable = errors.New("engine: master key unavailable")
	ErrDecryptFailed  = errors.New("engine: cookie value decrypt failed")
	ErrProtocolError  = errors.New("engine: cookie file protocol error")
)

// classifyStoreError maps a raw error from opening or querying a cookie
// store to one of the sentinels above, so a strategy can decide whether a
// lockguard.Resolve attempt is worth making before giving up on a file.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch lockguard.Classify(err) {
	case lockguard.Locked:
		return fmt.Errorf("%w: %v", ErrLocked, err)
	case lockguard.Permission:
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}
