package metadata_test

import (
	"encoding/json"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap"
	"github.com/vkngwrapper/brkheap/metadata"
)

func TestHeapStatistics(t *testing.T) {
	chain := newChain(t, metadata.StrategyFirstFit, 4096)
	growBlocks(t, chain, []int{8, 16, 4, 32}, []bool{false, true, false, true})

	var stats brkheap.HeapStatistics
	stats.Clear()
	chain.AddHeapStatistics(&stats)

	require.Equal(t, brkheap.HeapStatistics{
		RegionBytes:        60 + 4*metadata.HeaderSize,
		BlockCount:         4,
		AllocationCount:    2,
		AllocationBytes:    12,
		UnusedBytes:        48,
		UnusedRangeCount:   2,
		AllocationSizeMin:  4,
		AllocationSizeMax:  8,
		UnusedRangeSizeMin: 16,
		UnusedRangeSizeMax: 32,
	}, stats)
}

func TestBlockJsonData(t *testing.T) {
	chain := newChain(t, metadata.StrategyBestFit, 4096)
	blocks := growBlocks(t, chain, []int{8, 16}, []bool{false, true})

	writer := jwriter.NewWriter()
	obj := writer.Object()
	chain.BlockJsonData(obj)
	obj.End()
	require.NoError(t, writer.Error())

	type block struct {
		Offset  int
		Payload int
		Size    int
		Free    bool
	}
	var parsed struct {
		Strategy     string
		TotalBytes   int
		UnusedBytes  int
		Allocations  int
		UnusedRanges int
		Blocks       []block
	}
	require.NoError(t, json.Unmarshal(writer.Bytes(), &parsed))

	require.Equal(t, "best-fit", parsed.Strategy)
	require.Equal(t, 24+2*metadata.HeaderSize, parsed.TotalBytes)
	require.Equal(t, 16, parsed.UnusedBytes)
	require.Equal(t, 1, parsed.Allocations)
	require.Equal(t, 1, parsed.UnusedRanges)
	require.Equal(t, []block{
		{Offset: int(blocks[0]), Payload: int(blocks[0]) + metadata.HeaderSize, Size: 8, Free: false},
		{Offset: int(blocks[1]), Payload: int(blocks[1]) + metadata.HeaderSize, Size: 16, Free: true},
	}, parsed.Blocks)
}
