package malloc

import (
	"context"
	"io"
	"math"
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/brkheap"
	"github.com/vkngwrapper/brkheap/internal/utils"
	"github.com/vkngwrapper/brkheap/metadata"
	"github.com/vkngwrapper/brkheap/source"
	"golang.org/x/exp/slog"
)

// Pointer identifies an allocation made by an Allocator
type Pointer = metadata.Pointer

// Null is the Pointer that refers to nothing
const Null = metadata.Null

// Allocator services allocate and release requests against a single heap region that only
// ever grows. Released blocks stay in the heap and are reused by later requests.
type Allocator struct {
	mutex  utils.OptionalMutex
	logger *slog.Logger
	source source.Source
	chain  *metadata.Chain
	stats  brkheap.Statistics

	// live maps every outstanding pointer to its aligned requested size; nil unless
	// TrackAllocations was requested
	live *swiss.Map[Pointer, int]

	reportOnce sync.Once
	destroyed  bool
}

// maxRequestSize is the largest request whose aligned size and header still fit in an int
const maxRequestSize = math.MaxInt - metadata.HeaderSize - int(brkheap.Alignment)

var _ brkheap.Validatable = &Allocator{}

// Allocate reserves at least size bytes and returns a pointer to them. The contents of the
// returned memory are unspecified. Requests of zero or fewer bytes fail with ErrInvalidSize;
// if the heap cannot grow, Allocate fails with an error matching ErrOutOfMemory and the heap
// is unchanged.
func (a *Allocator) Allocate(size int) (Pointer, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("Allocate")

	return a.allocate(size)
}

func (a *Allocator) allocate(size int) (Pointer, error) {
	if size <= 0 {
		return Null, cerrors.Wrapf(brkheap.ErrInvalidSize, "requested %d bytes", size)
	}
	if size > maxRequestSize {
		return Null, cerrors.Mark(cerrors.Newf("requested %d bytes", size), brkheap.ErrOutOfMemory)
	}

	size = brkheap.Align4(size)
	brkheap.DebugCheckAligned(size, "aligned request size")

	block, last := a.chain.FindFreeBlock(size)
	reused := block != metadata.NoBlock

	if reused {
		if a.chain.Size(block) > size && a.chain.Split(block, size) {
			a.stats.RecordSplit()
		}
	} else {
		var err error
		block, err = a.chain.Grow(last, size)
		a.stats.RecordGrow(err == nil)

		if err != nil {
			a.logger.Debug("Allocator::growHeap refused",
				slog.Int("Size", size),
				slog.Int("Break", a.source.Break()),
				slog.Any("error", err),
			)
			return Null, cerrors.Mark(cerrors.Wrapf(err, "failed to allocate %d bytes", size), brkheap.ErrOutOfMemory)
		}

		a.logger.Debug("Allocator::growHeap",
			slog.Int("Offset", int(block)),
			slog.Int("Size", size),
			slog.Int("Break", a.source.Break()),
		)
	}

	a.chain.MarkTaken(block)
	a.stats.RecordAllocation(size, reused)

	ptr := metadata.PayloadOf(block)
	if a.live != nil {
		a.live.Put(ptr, size)
	}

	brkheap.DebugValidate(a.chain)
	return ptr, nil
}

// Release returns an allocation to the heap so that its memory can be reused, merging it
// with any free neighbors. Releasing Null does nothing. Releasing a pointer that is already
// free, or that this Allocator never returned, is a fatal error: Release panics if it notices,
// and otherwise the heap is corrupted.
func (a *Allocator) Release(ptr Pointer) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("Release")

	a.release(ptr)
}

func (a *Allocator) release(ptr Pointer) {
	if ptr == Null {
		return
	}

	block := a.liveBlock(ptr, "release")

	a.stats.RecordRelease()
	a.chain.MarkFree(block)
	brkheap.WriteFreedMagic(a.chain.Payload(block))
	if a.live != nil {
		a.live.Delete(ptr)
	}

	if _, merged := a.chain.Coalesce(block); merged {
		a.stats.RecordCoalesce()
	}

	brkheap.DebugValidate(a.chain)
}

func (a *Allocator) checkNotDestroyed(operation string) {
	if a.destroyed {
		panic(cerrors.AssertionFailedf("attempted to call %s on an allocator that has been destroyed", operation))
	}
}

// liveBlock maps a caller-supplied pointer back to its block, panicking if the pointer is
// obviously not a live allocation
func (a *Allocator) liveBlock(ptr Pointer, operation string) metadata.BlockOffset {
	if a.live != nil {
		if _, ok := a.live.Get(ptr); !ok {
			panic(cerrors.AssertionFailedf("attempted to %s pointer %d, which is not a live allocation", operation, ptr))
		}
	}

	if int(ptr) < metadata.HeaderSize || int(ptr) >= a.source.Break() || int(ptr)%int(brkheap.Alignment) != 0 {
		panic(cerrors.AssertionFailedf("attempted to %s pointer %d, which is outside of the heap", operation, ptr))
	}
	if brkheap.DebugEnabled && !a.chain.Contains(ptr) {
		panic(cerrors.AssertionFailedf("attempted to %s pointer %d, which is not the start of a block", operation, ptr))
	}

	block := metadata.HeaderOf(ptr)
	if a.chain.IsFree(block) {
		panic(cerrors.AssertionFailedf("attempted to %s pointer %d, which has already been released", operation, ptr))
	}

	return block
}

// ZeroAllocate reserves room for count elements of size bytes each and zeroes all of it.
// Each element size is aligned before multiplying. A product too large to represent fails
// with ErrOutOfMemory.
func (a *Allocator) ZeroAllocate(count, size int) (Pointer, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("ZeroAllocate")

	if count <= 0 || size <= 0 {
		return Null, cerrors.Wrapf(brkheap.ErrInvalidSize, "requested %d elements of %d bytes", count, size)
	}
	if size > maxRequestSize {
		return Null, cerrors.Mark(cerrors.Newf("requested %d elements of %d bytes", count, size), brkheap.ErrOutOfMemory)
	}

	total, ok := brkheap.MulSize(count, brkheap.Align4(size))
	if !ok {
		return Null, cerrors.Mark(cerrors.Newf("%d elements of %d bytes overflows", count, size), brkheap.ErrOutOfMemory)
	}

	ptr, err := a.allocate(total)
	if err != nil {
		return Null, err
	}

	payload := a.chain.Payload(metadata.HeaderOf(ptr))
	for i := range payload {
		payload[i] = 0
	}

	return ptr, nil
}

// Reallocate changes the size of an allocation, preserving its contents up to the smaller of
// the old and new sizes.
//
//   - A Null pointer behaves like Allocate(size).
//   - A size of 0 releases the pointer and returns Null.
//   - A smaller size shrinks the block where it is, returning any large enough tail to the heap.
//   - A larger size absorbs the following block when it is free and big enough.
//   - Otherwise a new block is allocated, the contents are copied, and the old block is released.
//
// If a new block cannot be obtained, the error matches ErrOutOfMemory and the original
// allocation is untouched.
func (a *Allocator) Reallocate(ptr Pointer, size int) (Pointer, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("Reallocate")

	if ptr == Null {
		return a.allocate(size)
	}
	if size == 0 {
		a.release(ptr)
		return Null, nil
	}
	if size < 0 {
		return Null, cerrors.Wrapf(brkheap.ErrInvalidSize, "requested %d bytes", size)
	}

	block := a.liveBlock(ptr, "reallocate")
	if size > maxRequestSize {
		return Null, cerrors.Mark(cerrors.Newf("requested %d bytes", size), brkheap.ErrOutOfMemory)
	}

	current := a.chain.Size(block)
	aligned := brkheap.Align4(size)

	if aligned <= current {
		split, merged := a.chain.ShrinkInPlace(block, aligned)
		if split {
			a.stats.RecordSplit()
		}
		if merged {
			a.stats.RecordCoalesce()
		}

		a.updateLive(ptr, aligned)
		brkheap.DebugValidate(a.chain)
		return ptr, nil
	}

	if grown, split := a.chain.GrowInPlace(block, aligned); grown {
		a.stats.RecordCoalesce()
		if split {
			a.stats.RecordSplit()
		}

		a.updateLive(ptr, aligned)
		brkheap.DebugValidate(a.chain)
		return ptr, nil
	}

	newPtr, err := a.allocate(size)
	if err != nil {
		return Null, err
	}

	copy(a.chain.Payload(metadata.HeaderOf(newPtr)), a.chain.Payload(block))
	a.release(ptr)

	return newPtr, nil
}

func (a *Allocator) updateLive(ptr Pointer, size int) {
	if a.live != nil {
		a.live.Put(ptr, size)
	}
}

// Bytes returns the memory of a live allocation. Its length is the usable size of the block,
// which may be larger than what was requested. The slice is only valid until the pointer
// is released or reallocated.
func (a *Allocator) Bytes(ptr Pointer) []byte {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("Bytes")

	return a.chain.Payload(a.liveBlock(ptr, "access"))
}

// UsableSize returns the number of bytes that may be used through a live pointer
func (a *Allocator) UsableSize(ptr Pointer) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("UsableSize")

	return a.chain.Size(a.liveBlock(ptr, "measure"))
}

// Strategy returns the fit strategy this Allocator searches with
func (a *Allocator) Strategy() metadata.Strategy {
	return a.chain.Strategy()
}

// LiveAllocations returns the number of outstanding pointers. It returns -1 unless the
// Allocator was created with TrackAllocations.
func (a *Allocator) LiveAllocations() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.live == nil {
		return -1
	}
	return a.live.Count()
}

// Statistics returns a snapshot of the lifetime counters
func (a *Allocator) Statistics() brkheap.Statistics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.stats
}

// HeapStatistics walks the heap and describes its current shape
func (a *Allocator) HeapStatistics() brkheap.HeapStatistics {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("HeapStatistics")

	var stats brkheap.HeapStatistics
	stats.Clear()
	a.chain.AddHeapStatistics(&stats)
	return stats
}

// Validate checks the consistency of the heap and, when allocations are tracked, that every
// tracked pointer is a block in use
func (a *Allocator) Validate() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("Validate")

	err := a.chain.Validate()
	if err != nil {
		return err
	}

	if a.live == nil {
		return nil
	}

	used := 0
	err = a.chain.VisitAllBlocks(func(block metadata.BlockOffset, size int, free bool) error {
		if free {
			return nil
		}

		used++
		requested, ok := a.live.Get(metadata.PayloadOf(block))
		if !ok {
			return cerrors.Newf("block at offset %d is in use but is not a tracked allocation", block)
		}
		if requested > size {
			return cerrors.Newf("block at offset %d holds %d bytes but %d were requested", block, size, requested)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if used != a.live.Count() {
		return cerrors.Newf("%d allocations are tracked but %d blocks are in use", a.live.Count(), used)
	}

	return nil
}

// PrintDetailedMap writes a json description of the lifetime counters and of every block in
// the heap
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.checkNotDestroyed("PrintDetailedMap")

	objState := writer.Object()
	defer objState.End()

	statsObj := objState.Name("Statistics").Object()
	a.stats.WriteJson(statsObj)
	statsObj.End()

	heapObj := objState.Name("Heap").Object()
	a.chain.BlockJsonData(heapObj)
	heapObj.End()
}

// ReportOnce writes the heap management statistics to w the first time it is called. Later
// calls do nothing.
func (a *Allocator) ReportOnce(w io.Writer) error {
	var err error
	a.reportOnce.Do(func() {
		stats := a.Statistics()
		err = stats.Report(w)
	})
	return err
}

// Destroy releases the heap's region back to its source. Any allocation still outstanding is
// logged, and an error is returned, but the region is released regardless. Every later call
// that touches the heap panics.
func (a *Allocator) Destroy() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.destroyed {
		return cerrors.New("the allocator has already been destroyed")
	}
	a.destroyed = true

	leaked := 0
	_ = a.chain.VisitAllBlocks(func(block metadata.BlockOffset, size int, free bool) error {
		if free {
			return nil
		}

		leaked++
		a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed allocation",
			slog.Int("pointer", int(metadata.PayloadOf(block))),
			slog.Int("size", size),
		)
		return nil
	})

	err := a.source.Release()
	if err != nil {
		return cerrors.Wrap(err, "failed to release the heap region")
	}

	if leaked > 0 {
		return cerrors.Newf("%d allocations were not freed before the heap was destroyed", leaked)
	}

	return nil
}
