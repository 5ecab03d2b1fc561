//go:build brkheap_best

package malloc

import "github.com/vkngwrapper/brkheap/metadata"

// DefaultStrategy is the fit strategy used when CreateOptions does not pick one. It is
// selected at build time with one of the brkheap_best, brkheap_worst or brkheap_next tags.
const DefaultStrategy = metadata.StrategyBestFit
