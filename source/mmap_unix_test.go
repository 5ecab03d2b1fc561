//go:build unix

package source_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/source"
)

func TestMmapSourceSbrk(t *testing.T) {
	src, err := source.NewMmapSource(1)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Release())
	}()

	offset, err := src.Sbrk(100)
	require.NoError(t, err)
	require.Equal(t, 0, offset)

	region := src.Bytes()
	require.Len(t, region, 100)
	for i := range region {
		require.Zero(t, region[i])
	}
	region[99] = 7

	offset, err = src.Sbrk(28)
	require.NoError(t, err)
	require.Equal(t, 100, offset)
	require.Equal(t, byte(7), src.Bytes()[99])
}

func TestMmapSourceExhausted(t *testing.T) {
	src, err := source.NewMmapSource(4096)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Release())
	}()

	_, err = src.Sbrk(src.Limit() + 1)
	require.True(t, errors.Is(err, source.ErrExhausted))
	require.Equal(t, 0, src.Break())
}
