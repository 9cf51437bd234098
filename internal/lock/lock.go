// Package lock serialises work per key, in process or across replicas.
package lock

import "errors"

var ErrLockTimeout = errors.New("lock: timed out waiting for key")

// Locker hands out exclusive ownership of a key until unlock is called.
type Locker interface {
	Acquire(key string) (unlock func(), err error)
}
