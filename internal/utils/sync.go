package utils

import (
	"sync"
)

// OptionalMutex is a mutex that only locks when UseMutex is set. It lets a single-threaded
// heap skip locking entirely while a shared heap serializes every operation.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}
