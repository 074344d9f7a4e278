package cmd

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// acquireLock takes the lock shared by sync and download runs. The returned
// func releases it.
func acquireLock(path string) (func(), error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another sync or download is already running")
	}
	return func() { _ = lock.Unlock() }, nil
}
