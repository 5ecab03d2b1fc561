package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/malloc"
)

var (
	randomSeed    int64
	randomSteps   int
	randomMaxSize int
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Run a seeded random allocate/release/reallocate workload",
	Long: `Runs a mixed workload of allocations, releases and reallocations of random
sizes. The same seed always produces the same sequence of requests, so runs with
different strategies can be compared by their statistics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRandom(cmd)
	},
}

func init() {
	randomCmd.Flags().Int64Var(&randomSeed, "seed", 1, "Seed for the request sequence")
	randomCmd.Flags().IntVar(&randomSteps, "steps", 100000, "Number of requests")
	randomCmd.Flags().IntVar(&randomMaxSize, "max-size", 4096, "Largest request size")
	rootCmd.AddCommand(randomCmd)
}

func runRandom(cmd *cobra.Command) error {
	if randomMaxSize < 1 {
		return errors.Newf("--max-size must be positive, got %d", randomMaxSize)
	}

	rng := rand.New(rand.NewSource(randomSeed))
	live := make([]malloc.Pointer, 0, 1024)
	start := time.Now()

	for step := 0; step < randomSteps; step++ {
		switch op := rng.Intn(10); {
		case op < 5 || len(live) == 0:
			ptr, err := allocator.Allocate(1 + rng.Intn(randomMaxSize))
			if err != nil {
				return errors.Wrapf(err, "step %d", step)
			}
			live = append(live, ptr)
		case op < 8:
			index := rng.Intn(len(live))
			allocator.Release(live[index])
			live[index] = live[len(live)-1]
			live = live[:len(live)-1]
		default:
			index := rng.Intn(len(live))
			ptr, err := allocator.Reallocate(live[index], 1+rng.Intn(randomMaxSize))
			if err != nil {
				return errors.Wrapf(err, "step %d", step)
			}
			live[index] = ptr
		}
	}

	if err := allocator.Validate(); err != nil {
		return err
	}

	heap := allocator.HeapStatistics()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d requests in %s, %d live allocations, %d of %d bytes unused\n",
		allocator.Strategy(), randomSteps, time.Since(start), len(live), heap.UnusedBytes, heap.RegionBytes)

	for _, ptr := range live {
		allocator.Release(ptr)
	}
	return nil
}
