package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/metadata"
)

func TestSplitAddress(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{100, 8}, []bool{true, false})

	require.True(t, chain.Split(blocks[0], 40))

	// The residual header sits 40 bytes past the payload, not 40 headers past it
	residual := chain.Next(blocks[0])
	require.Equal(t, metadata.BlockOffset(int(metadata.PayloadOf(blocks[0]))+40), residual)
	require.Equal(t, metadata.BlockOffset(64), residual)
	require.Equal(t, 40, chain.Size(blocks[0]))
	require.Equal(t, 100-40-metadata.HeaderSize, chain.Size(residual))
	require.True(t, chain.IsFree(residual))
	require.Equal(t, blocks[1], chain.Next(residual))

	// Filling the shrunk payload must not touch the residual header
	chain.MarkTaken(blocks[0])
	payload := chain.Payload(blocks[0])
	for i := range payload {
		payload[i] = 0xFF
	}
	require.Equal(t, 36, chain.Size(residual))
	require.True(t, chain.IsFree(residual))
	require.Equal(t, blocks[1], chain.Next(residual))

	require.Equal(t, 132+metadata.HeaderSize, chain.Len())
	require.NoError(t, chain.Validate())
}

func TestSplitThreshold(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{60}, []bool{true})

	// 28 bytes left over is exactly HeaderSize+MinPayload, which is not enough
	require.False(t, chain.Split(blocks[0], 32))
	require.Equal(t, 60, chain.Size(blocks[0]))
	require.Equal(t, metadata.NoBlock, chain.Next(blocks[0]))

	require.False(t, chain.Split(blocks[0], 60))

	require.True(t, chain.Split(blocks[0], 28))
	require.Equal(t, 28, chain.Size(blocks[0]))
	residual := chain.Next(blocks[0])
	require.Equal(t, 8, chain.Size(residual))
	require.Equal(t, metadata.NoBlock, chain.Next(residual))

	chain.MarkTaken(blocks[0])
	require.NoError(t, chain.Validate())
}

func TestCoalesceMiddleFirstLast(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{4, 4, 4}, nil)

	chain.MarkFree(blocks[1])
	block, merged := chain.Coalesce(blocks[1])
	require.False(t, merged)
	require.Equal(t, blocks[1], block)
	require.NoError(t, chain.Validate())

	chain.MarkFree(blocks[0])
	block, merged = chain.Coalesce(blocks[0])
	require.True(t, merged)
	require.Equal(t, blocks[0], block)
	require.Equal(t, 4+metadata.HeaderSize+4, chain.Size(blocks[0]))
	require.Equal(t, blocks[2], chain.Next(blocks[0]))
	require.NoError(t, chain.Validate())

	chain.MarkFree(blocks[2])
	block, merged = chain.Coalesce(blocks[2])
	require.True(t, merged)
	require.Equal(t, blocks[0], block)

	require.Equal(t, 3*4+2*metadata.HeaderSize, chain.Size(blocks[0]))
	require.Equal(t, metadata.NoBlock, chain.Next(blocks[0]))
	require.True(t, chain.IsFree(blocks[0]))
	require.Equal(t, 3*(4+metadata.HeaderSize), chain.Len())
	require.NoError(t, chain.Validate())
}

func TestCoalesceAllOrders(t *testing.T) {
	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, order := range orders {
		chain := newChain(t, metadata.StrategyFirstFit, 4096)
		blocks := growBlocks(t, chain, []int{8, 12, 20, 4}, nil)

		for _, i := range order {
			chain.MarkFree(blocks[i])
			chain.Coalesce(blocks[i])
			require.NoError(t, chain.Validate())
		}

		require.True(t, chain.IsFree(blocks[0]))
		require.Equal(t, 8+12+20+2*metadata.HeaderSize, chain.Size(blocks[0]))
		require.Equal(t, blocks[3], chain.Next(blocks[0]))
		require.False(t, chain.IsFree(blocks[3]))
	}
}

func TestCoalesceBothNeighbors(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{8, 16, 32, 8}, []bool{true, false, true, false})

	chain.MarkFree(blocks[1])
	block, merged := chain.Coalesce(blocks[1])
	require.True(t, merged)
	require.Equal(t, blocks[0], block)
	require.Equal(t, 8+16+32+2*metadata.HeaderSize, chain.Size(blocks[0]))
	require.Equal(t, blocks[3], chain.Next(blocks[0]))
	require.NoError(t, chain.Validate())
}

func TestCoalesceMovesNextFitCursor(t *testing.T) {
	chain := newChain(t, metadata.StrategyNextFit, 4096)
	blocks := growBlocks(t, chain, []int{16, 16, 16, 16}, nil)

	chain.MarkFree(blocks[1])
	chain.Coalesce(blocks[1])

	found, _ := chain.FindFreeBlock(16)
	require.Equal(t, blocks[1], found)

	// A absorbs B, which the cursor points at
	chain.MarkFree(blocks[0])
	block, merged := chain.Coalesce(blocks[0])
	require.True(t, merged)
	require.Equal(t, blocks[0], block)
	require.NoError(t, chain.Validate())

	found, _ = chain.FindFreeBlock(16)
	require.Equal(t, blocks[0], found)
	require.Equal(t, 16+metadata.HeaderSize+16, chain.Size(found))
}

func TestShrinkInPlace(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{100, 20, 8}, []bool{false, true, false})

	split, merged := chain.ShrinkInPlace(blocks[0], 96)
	require.False(t, split)
	require.False(t, merged)
	require.Equal(t, 100, chain.Size(blocks[0]))

	split, merged = chain.ShrinkInPlace(blocks[0], 40)
	require.True(t, split)
	require.True(t, merged)
	require.Equal(t, 40, chain.Size(blocks[0]))

	residual := chain.Next(blocks[0])
	require.True(t, chain.IsFree(residual))
	require.Equal(t, 100-40-metadata.HeaderSize+metadata.HeaderSize+20, chain.Size(residual))
	require.Equal(t, blocks[2], chain.Next(residual))
	require.NoError(t, chain.Validate())
}

func TestGrowInPlace(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{16, 100, 8}, []bool{false, true, false})

	grown, split := chain.GrowInPlace(blocks[0], 200)
	require.False(t, grown)
	require.False(t, split)
	require.Equal(t, 16, chain.Size(blocks[0]))

	grown, split = chain.GrowInPlace(blocks[0], 40)
	require.True(t, grown)
	require.True(t, split)
	require.Equal(t, 40, chain.Size(blocks[0]))

	residual := chain.Next(blocks[0])
	require.True(t, chain.IsFree(residual))
	require.Equal(t, 16+metadata.HeaderSize+100-40-metadata.HeaderSize, chain.Size(residual))
	require.Equal(t, blocks[2], chain.Next(residual))
	require.NoError(t, chain.Validate())

	// The free block left behind is too small to be split again
	grown, split = chain.GrowInPlace(blocks[0], 40+metadata.HeaderSize+76)
	require.True(t, grown)
	require.False(t, split)
	require.Equal(t, blocks[2], chain.Next(blocks[0]))
	require.NoError(t, chain.Validate())
}

func TestGrowInPlaceUsedSuccessor(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	blocks := growBlocks(t, chain, []int{16, 100}, nil)

	grown, _ := chain.GrowInPlace(blocks[0], 20)
	require.False(t, grown)

	grown, _ = chain.GrowInPlace(blocks[1], 104)
	require.False(t, grown)
}
