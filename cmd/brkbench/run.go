package main

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap"
	"github.com/vkngwrapper/brkheap/malloc"
)

var (
	largeSize  int
	mediumSize int
	smallSize  int
	smallCount int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the growth/split/reuse benchmark",
	Long: `Allocates and frees one very large block, allocates two medium blocks
which are carved out of the freed space, frees them, then allocates many small
blocks and frees them all again.

If the large allocation is refused by the memory source, the run continues
with the remaining phases.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd)
	},
}

func init() {
	runCmd.Flags().IntVar(&largeSize, "large", 123155156924/124314*1231, "Size of the first allocation")
	runCmd.Flags().IntVar(&mediumSize, "medium", 1200, "Size of the two medium allocations")
	runCmd.Flags().IntVar(&smallSize, "small", 100, "Size of each small allocation")
	runCmd.Flags().IntVarP(&smallCount, "count", "n", 10000, "Number of small allocations")
	rootCmd.AddCommand(runCmd)
}

func runBenchmark(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	start := time.Now()

	large, err := allocator.Allocate(largeSize)
	if errors.Is(err, brkheap.ErrOutOfMemory) {
		fmt.Fprintf(out, "large allocation of %d bytes refused\n", largeSize)
	} else if err != nil {
		return err
	}
	allocator.Release(large)

	first, err := allocator.Allocate(mediumSize)
	if err != nil {
		return err
	}
	second, err := allocator.Allocate(mediumSize)
	if err != nil {
		return err
	}
	allocator.Release(first)
	allocator.Release(second)

	pointers := make([]malloc.Pointer, 0, smallCount)
	for i := 0; i < smallCount; i++ {
		ptr, err := allocator.Allocate(smallSize)
		if err != nil {
			return errors.Wrapf(err, "small allocation %d", i)
		}
		pointers = append(pointers, ptr)
	}
	for _, ptr := range pointers {
		allocator.Release(ptr)
	}

	if err := allocator.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d small allocations in %s\n", allocator.Strategy(), smallCount, time.Since(start))
	return nil
}
