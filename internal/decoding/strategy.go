package decoding

// Strategy selects how a cycle schedules the per-type decode passes.
// It never changes which blocks are produced.
type Strategy int

const (
	StrategySerial Strategy = iota
	StrategyParallel
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategySerial:
		return "Serial"
	case StrategyParallel:
		return "Parallel"
	default:
		return "Unknown"
	}
}

// StrategyFor decodes in parallel when the media types do not share a
// clock or parallel decoding is requested.
func StrategyFor(unifiedClocks, parallel bool) Strategy {
	if !unifiedClocks || parallel {
		return StrategyParallel
	}
	return StrategySerial
}
