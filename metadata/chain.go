package metadata

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/brkheap"
	"github.com/vkngwrapper/brkheap/source"
)

// Chain is the bookkeeping for a single heap region. Every byte the region has ever been
// grown by belongs to exactly one block, and blocks are linked in address order from the
// head at offset 0 to the tail, which ends at the source's break. Free and used blocks are
// interleaved in the same chain; the free list is the chain filtered by each block's free flag.
type Chain struct {
	source   source.Source
	strategy Strategy

	head   BlockOffset
	cursor BlockOffset
}

var _ brkheap.Validatable = &Chain{}

// NewChain prepares bookkeeping for an empty region. The source must not have been grown
// by anyone else: the chain must account for every byte below the break.
func NewChain(src source.Source, strategy Strategy) (*Chain, error) {
	if src == nil {
		return nil, errors.New("a chain requires a memory source")
	}
	if src.Break() != 0 {
		return nil, cerrors.Newf("the memory source has already been grown to %d bytes", src.Break())
	}
	if _, ok := strategyMapping[strategy]; !ok {
		return nil, cerrors.Newf("unknown fit strategy: %d", strategy)
	}

	return &Chain{
		source:   src,
		strategy: strategy,
		head:     NoBlock,
		cursor:   NoBlock,
	}, nil
}

// Strategy returns the fit strategy used by FindFreeBlock
func (c *Chain) Strategy() Strategy { return c.strategy }

// Head returns the first block in the chain, or NoBlock if the heap has never been grown
func (c *Chain) Head() BlockOffset { return c.head }

// Len returns the number of bytes in the region, headers included
func (c *Chain) Len() int { return c.source.Break() }

func (c *Chain) header(block BlockOffset) header {
	offset := int(block)
	return header(c.source.Bytes()[offset : offset+HeaderSize : offset+HeaderSize])
}

// Size returns the payload capacity of a block in bytes
func (c *Chain) Size(block BlockOffset) int { return c.header(block).size() }

// Next returns the block following this one, or NoBlock for the tail
func (c *Chain) Next(block BlockOffset) BlockOffset { return c.header(block).next() }

// IsFree reports whether the block's payload may be handed out
func (c *Chain) IsFree(block BlockOffset) bool { return c.header(block).free() }

// MarkFree flags a block as reusable. It does not coalesce.
func (c *Chain) MarkFree(block BlockOffset) { c.header(block).setFree(true) }

// MarkTaken flags a block as in use
func (c *Chain) MarkTaken(block BlockOffset) { c.header(block).setFree(false) }

// Payload returns the caller-visible bytes of a block. The slice's capacity is clipped
// so that appending to it can never reach the next header.
func (c *Chain) Payload(block BlockOffset) []byte {
	start := int(PayloadOf(block))
	end := start + c.Size(block)
	return c.source.Bytes()[start:end:end]
}

// Contains reports whether ptr is the payload of a block in this chain. It walks the chain.
func (c *Chain) Contains(ptr Pointer) bool {
	target := HeaderOf(ptr)
	for block := c.head; block != NoBlock && block <= target; block = c.Next(block) {
		if block == target {
			return true
		}
	}

	return false
}

// VisitAllBlocks calls handleBlock once per block in address order
func (c *Chain) VisitAllBlocks(handleBlock func(block BlockOffset, size int, free bool) error) error {
	for block := c.head; block != NoBlock; block = c.Next(block) {
		h := c.header(block)
		err := handleBlock(block, h.size(), h.free())
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate walks the chain and checks every structural invariant. It is O(n) and intended for
// tests and debug builds.
func (c *Chain) Validate() error {
	regionSize := c.source.Break()
	if c.head == NoBlock {
		if regionSize != 0 {
			return cerrors.Newf("the chain is empty but the region is %d bytes", regionSize)
		}
		if c.cursor != NoBlock {
			return cerrors.Newf("the chain is empty but the next-fit cursor points at offset %d", c.cursor)
		}
		return nil
	}

	if c.head != 0 {
		return cerrors.Newf("the chain head should be at offset 0, but it is at offset %d", c.head)
	}

	cursorFound := c.cursor == NoBlock
	prevFree := false
	expected := BlockOffset(0)
	for block := c.head; block != NoBlock; {
		if block != expected {
			return cerrors.Newf("block at offset %d should immediately follow its predecessor at offset %d", block, expected)
		}
		if int(block)+HeaderSize > regionSize {
			return cerrors.Newf("header of block at offset %d runs past the end of the region (%d bytes)", block, regionSize)
		}

		h := c.header(block)
		size := h.size()
		end := int(block) + HeaderSize + size
		if size%4 != 0 {
			return cerrors.Newf("block at offset %d has size %d, which is not a multiple of 4", block, size)
		}
		if end > regionSize {
			return cerrors.Newf("block at offset %d with size %d runs past the end of the region (%d bytes)", block, size, regionSize)
		}
		if h.free() && prevFree {
			return cerrors.Newf("block at offset %d is free but its predecessor is also free and was not coalesced", block)
		}
		if block == c.cursor {
			cursorFound = true
		}

		next := h.next()
		if next == NoBlock && end != regionSize {
			return cerrors.Newf("the tail block at offset %d ends at %d, but the region is %d bytes", block, end, regionSize)
		}

		prevFree = h.free()
		expected = BlockOffset(end)
		block = next
	}

	if !cursorFound {
		return cerrors.Newf("the next-fit cursor points at offset %d, which is not a block in the chain", c.cursor)
	}

	return nil
}

// AddHeapStatistics sums the shape of this chain into stats
func (c *Chain) AddHeapStatistics(stats *brkheap.HeapStatistics) {
	stats.RegionBytes += c.source.Break()
	_ = c.VisitAllBlocks(func(block BlockOffset, size int, free bool) error {
		stats.BlockCount++
		if free {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

// BlockJsonData populates a json object with a summary of the region and an entry for
// every block in the chain
func (c *Chain) BlockJsonData(json jwriter.ObjectState) {
	var stats brkheap.HeapStatistics
	stats.Clear()
	c.AddHeapStatistics(&stats)

	json.Name("Strategy").String(c.strategy.String())
	json.Name("TotalBytes").Int(stats.RegionBytes)
	json.Name("UnusedBytes").Int(stats.UnusedBytes)
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.UnusedRangeCount)

	blocks := json.Name("Blocks").Array()
	defer blocks.End()

	_ = c.VisitAllBlocks(func(block BlockOffset, size int, free bool) error {
		obj := blocks.Object()
		defer obj.End()

		obj.Name("Offset").Int(int(block))
		obj.Name("Payload").Int(int(PayloadOf(block)))
		obj.Name("Size").Int(size)
		obj.Name("Free").Bool(free)
		return nil
	})
}
