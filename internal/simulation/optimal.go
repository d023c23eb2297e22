package simulation

import (
	"gonum.org/v1/gonum/floats"
)

// OptimalIndex returns the index of the minimum value. When the minimum forms
// a plateau of equal values, an interior plateau or one spanning the whole
// slice resolves to its midpoint; a plateau touching only the left edge
// resolves to 0 and one touching only the right edge to the last index.
func OptimalIndex(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	last := len(values) - 1
	minIdx := floats.MinIdx(values)
	minVal := values[minIdx]

	start := minIdx
	for start > 0 && values[start-1] == minVal {
		start--
	}
	end := minIdx
	for end < last && values[end+1] == minVal {
		end++
	}

	if (end != last && start != 0) || (end == last && start == 0) {
		return (start + end) / 2
	}
	if start == 0 {
		return 0
	}
	return last
}
