package main

import (
	"fmt"
	"os"

	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/malloc"
	"github.com/vkngwrapper/brkheap/metadata"
	"github.com/vkngwrapper/brkheap/source"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	verbose      bool
	jsonOut      bool
	strategyName string
	backend      string
	regionLimit  int

	allocator *malloc.Allocator
)

var rootCmd = &cobra.Command{
	Use:   "brkbench",
	Short: "Exercise the brkheap allocator and report its heap statistics",
	Long: `brkbench drives a brkheap allocator through a workload and prints the
heap management statistics once when it exits. The fit strategy and the
memory source backing the heap can be chosen per run.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		allocator, err = newAllocator()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log heap growth")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print a json map of the heap instead of the text report")
	rootCmd.PersistentFlags().StringVarP(&strategyName, "strategy", "s", malloc.DefaultStrategy.String(), "Fit strategy: first, best, worst or next")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "mmap", "Memory source: mmap or slice")
	rootCmd.PersistentFlags().IntVar(&regionLimit, "limit", 2<<30, "Maximum size of the heap region in bytes")
}

func newAllocator() (*malloc.Allocator, error) {
	strategy, err := metadata.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	var src source.Source
	switch backend {
	case "mmap":
		src, err = source.NewMmapSource(regionLimit)
	case "slice":
		src, err = source.NewSliceSource(regionLimit)
	default:
		err = cerrors.Newf("unknown memory source %q", backend)
	}
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(os.Stderr))

	return malloc.New(malloc.CreateOptions{
		Source:   src,
		Strategy: strategy,
		Logger:   logger,
	})
}

// report prints the statistics of the run. It is called on every exit path but only the
// first call prints.
func report() {
	if allocator == nil {
		return
	}

	if jsonOut {
		writer := jwriter.NewWriter()
		allocator.PrintDetailedMap(&writer)
		if writer.Error() == nil {
			fmt.Fprintln(os.Stdout, string(writer.Bytes()))
		}
		jsonOut = false
		return
	}

	_ = allocator.ReportOnce(os.Stdout)
}

func execute() {
	err := rootCmd.Execute()
	report()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
