package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalMutexDisabled(t *testing.T) {
	var m OptionalMutex

	m.Lock()
	m.Lock()
	require.True(t, m.Mutex.TryLock())
	m.Mutex.Unlock()
	m.Unlock()
}

func TestOptionalMutexEnabled(t *testing.T) {
	m := OptionalMutex{UseMutex: true}

	m.Lock()
	require.False(t, m.Mutex.TryLock())
	m.Unlock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 8000, counter)
}
