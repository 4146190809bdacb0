package heuristics

import "math"

// TETAQ (time-extended task allocation quality) is the search's priority,
// lower is better. An infinite NSQ (dead node) always yields +Inf regardless
// of apr, so a dead end never outranks a live node.
func TETAQ(alpha, apr, nsq float64) float64 {
	if math.IsInf(nsq, 1) {
		return math.Inf(1)
	}
	return alpha*apr + (1-alpha)*nsq
}
