package metadata

import (
	"strings"

	cerrors "github.com/cockroachdb/errors"
)

// Strategy selects which of several qualifying free blocks is handed out for a request
type Strategy uint32

const (
	// StrategyFirstFit selects the first free block in address order that is large enough
	StrategyFirstFit Strategy = iota + 1
	// StrategyBestFit selects the free block that leaves the least space unused, preferring
	// the lowest address when several blocks tie. It scans the whole chain on every request
	// and tends to leave many tiny fragments behind.
	StrategyBestFit
	// StrategyWorstFit selects the free block that leaves the most space unused, preferring the
	// lowest address when several blocks tie, so that what is left after splitting stays useful
	StrategyWorstFit
	// StrategyNextFit behaves like StrategyFirstFit but resumes scanning after the block it
	// returned last, wrapping around to the head of the chain
	StrategyNextFit
)

var strategyMapping = map[Strategy]string{
	StrategyFirstFit: "first-fit",
	StrategyBestFit:  "best-fit",
	StrategyWorstFit: "worst-fit",
	StrategyNextFit:  "next-fit",
}

func (s Strategy) String() string {
	str, ok := strategyMapping[s]
	if !ok {
		return "unknown"
	}
	return str
}

// ParseStrategy maps a name such as "best-fit" or "best" back to its Strategy
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for strategy, str := range strategyMapping {
		if name == str || name == strings.TrimSuffix(str, "-fit") {
			return strategy, nil
		}
	}

	return StrategyFirstFit, cerrors.Newf("unknown fit strategy: %q", name)
}
