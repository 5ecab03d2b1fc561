package brkheap_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap"
)

func TestAlign4(t *testing.T) {
	for size := 1; size <= 1024; size++ {
		aligned := brkheap.Align4(size)
		require.Zero(t, aligned%4)
		require.GreaterOrEqual(t, aligned, size)
		require.Less(t, aligned-size, 4)
	}

	require.Equal(t, 0, brkheap.Align4(0))
	require.Equal(t, 12, brkheap.Align4(10))
	require.Equal(t, 20, brkheap.Align4(20))
	require.Equal(t, 8, brkheap.Align4(8))
}

func TestCheckAligned(t *testing.T) {
	require.NoError(t, brkheap.CheckAligned(12, 4, "size"))
	require.ErrorContains(t, brkheap.CheckAligned(10, 4, "size"), "size is 10")
}

func TestMulSize(t *testing.T) {
	total, ok := brkheap.MulSize(10, 4)
	require.True(t, ok)
	require.Equal(t, 40, total)

	_, ok = brkheap.MulSize(math.MaxInt/2+1, 2)
	require.False(t, ok)

	_, ok = brkheap.MulSize(math.MaxInt, math.MaxInt)
	require.False(t, ok)

	_, ok = brkheap.MulSize(-1, 4)
	require.False(t, ok)
}
