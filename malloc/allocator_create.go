package malloc

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/brkheap/internal/utils"
	"github.com/vkngwrapper/brkheap/metadata"
	"github.com/vkngwrapper/brkheap/source"
	"golang.org/x/exp/slog"
)

const (
	// DefaultRegionLimit is the size of the region reserved when CreateOptions.Source is nil
	// and an mmap-backed source is available
	DefaultRegionLimit int = 1 << 30
	// DefaultSliceRegionLimit is the size of the region reserved when CreateOptions.Source is nil
	// and the platform cannot provide an mmap-backed source
	DefaultSliceRegionLimit int = 64 << 20
)

// CreateOptions configures a new Allocator
type CreateOptions struct {
	// Source provides the region the heap grows into. The Allocator takes ownership of it and
	// releases it in Destroy. If nil, a DefaultRegionLimit-byte mmap source is reserved, falling
	// back to a DefaultSliceRegionLimit-byte slice source.
	Source source.Source
	// Strategy selects the fit strategy. If zero, DefaultStrategy is used.
	Strategy metadata.Strategy
	// Synchronized places a single mutex around every operation so that the Allocator may be
	// shared between goroutines. Without it, the Allocator must only be used from one goroutine
	// at a time.
	Synchronized bool
	// TrackAllocations keeps a registry of live pointers. Releasing a pointer that is not live
	// then panics reliably instead of corrupting the heap, at the cost of a hash map operation
	// per call.
	TrackAllocations bool
	// Logger receives debug records about heap growth. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// New creates an Allocator managing an empty heap
func New(options CreateOptions) (*Allocator, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	strategy := options.Strategy
	if strategy == 0 {
		strategy = DefaultStrategy
	}

	src := options.Source
	if src == nil {
		var err error
		src, err = newDefaultSource(logger)
		if err != nil {
			return nil, err
		}
	}

	chain, err := metadata.NewChain(src, strategy)
	if err != nil {
		return nil, cerrors.Wrap(err, "failed to prepare the heap")
	}

	allocator := &Allocator{
		mutex:  utils.OptionalMutex{UseMutex: options.Synchronized},
		logger: logger,
		source: src,
		chain:  chain,
	}

	if options.TrackAllocations {
		allocator.live = swiss.NewMap[Pointer, int](64)
	}

	logger.Debug("Allocator::New",
		slog.String("Strategy", strategy.String()),
		slog.Bool("Synchronized", options.Synchronized),
		slog.Bool("TrackAllocations", options.TrackAllocations),
	)

	return allocator, nil
}

func newDefaultSource(logger *slog.Logger) (source.Source, error) {
	mmapSource, err := source.NewMmapSource(DefaultRegionLimit)
	if err == nil {
		return mmapSource, nil
	}

	logger.Debug("mmap source unavailable, falling back to a slice source",
		slog.Int("Limit", DefaultSliceRegionLimit),
		slog.Any("error", err),
	)

	sliceSource, err := source.NewSliceSource(DefaultSliceRegionLimit)
	if err != nil {
		return nil, cerrors.Wrap(err, "failed to reserve a region for the heap")
	}
	return sliceSource, nil
}
