package brkheap

import (
	"fmt"
	"io"
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics holds the lifetime counters of a heap. They only ever increase.
type Statistics struct {
	// Mallocs counts successful allocations
	Mallocs int
	// Frees counts releases of non-null pointers
	Frees int
	// Reuses counts allocations satisfied by a block that was already free
	Reuses int
	// Grows counts attempts to extend the heap, including ones the memory source refused
	Grows int
	// Splits counts free blocks that were divided in two
	Splits int
	// Coalesces counts releases that merged the freed block with at least one neighbor
	Coalesces int
	// Blocks counts blocks created by growing the heap
	Blocks int
	// Requested is the sum of the aligned sizes of all successful allocations
	Requested int
	// MaxHeap is the largest single aligned allocation size seen. Despite the name, this is
	// not the peak size of the heap.
	MaxHeap int
}

func (s *Statistics) Clear() {
	*s = Statistics{}
}

// RecordAllocation accounts for a successful allocation of an aligned size
func (s *Statistics) RecordAllocation(size int, reused bool) {
	s.Mallocs++
	s.Requested += size
	if reused {
		s.Reuses++
	}

	if size > s.MaxHeap {
		s.MaxHeap = size
	}
}

func (s *Statistics) RecordRelease() {
	s.Frees++
}

// RecordGrow accounts for an attempt to grow the heap, and for the new block if it succeeded
func (s *Statistics) RecordGrow(success bool) {
	s.Grows++
	if success {
		s.Blocks++
	}
}

func (s *Statistics) RecordSplit() {
	s.Splits++
}

func (s *Statistics) RecordCoalesce() {
	s.Coalesces++
}

// Report writes the heap management statistics in their fixed labelled format, one
// counter per line
func (s *Statistics) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"\nheap management statistics\n"+
			"mallocs:\t%d\n"+
			"frees:\t\t%d\n"+
			"reuses:\t\t%d\n"+
			"grows:\t\t%d\n"+
			"splits:\t\t%d\n"+
			"coalesces:\t%d\n"+
			"blocks:\t\t%d\n"+
			"requested:\t%d\n"+
			"max heap:\t%d\n",
		s.Mallocs, s.Frees, s.Reuses, s.Grows, s.Splits, s.Coalesces, s.Blocks, s.Requested, s.MaxHeap,
	)
	return err
}

// WriteJson populates a json object with every counter
func (s *Statistics) WriteJson(json jwriter.ObjectState) {
	json.Name("Mallocs").Int(s.Mallocs)
	json.Name("Frees").Int(s.Frees)
	json.Name("Reuses").Int(s.Reuses)
	json.Name("Grows").Int(s.Grows)
	json.Name("Splits").Int(s.Splits)
	json.Name("Coalesces").Int(s.Coalesces)
	json.Name("Blocks").Int(s.Blocks)
	json.Name("Requested").Int(s.Requested)
	json.Name("MaxHeap").Int(s.MaxHeap)
}

// HeapStatistics describes the shape of a heap at a single point in time
type HeapStatistics struct {
	RegionBytes     int
	BlockCount      int
	AllocationCount int
	AllocationBytes int
	UnusedBytes     int

	UnusedRangeCount   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

func (s *HeapStatistics) Clear() {
	s.RegionBytes = 0
	s.BlockCount = 0
	s.AllocationCount = 0
	s.AllocationBytes = 0
	s.UnusedBytes = 0
	s.UnusedRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

func (s *HeapStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++
	s.UnusedBytes += size

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *HeapStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}
