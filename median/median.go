package median

import (
	"errors"
	"math/big"
	"sort"
)

// Median returns the median of values without modifying the input.
//
// We use a "rank-k" median here instead of averaging the two middle values.
// In the case of an even number of values, the lower one is chosen.
// e.g. [1, 2, 3, 4] -> 2
func Median(values []*big.Int) (*big.Int, error) {
	if len(values) == 0 {
		return nil, errors.New("cannot take median of zero values")
	}
	sorted := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			return nil, errors.New("cannot take median of nil value")
		}
		sorted[i] = v
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })
	return new(big.Int).Set(sorted[medianIndex(len(sorted))]), nil
}

// Clamp saturates v into [lo, hi].
func Clamp(v, lo, hi *big.Int) *big.Int {
	switch {
	case v.Cmp(lo) < 0:
		return new(big.Int).Set(lo)
	case v.Cmp(hi) > 0:
		return new(big.Int).Set(hi)
	default:
		return new(big.Int).Set(v)
	}
}

func medianIndex(n int) int {
	return (n - 1) / 2
}
