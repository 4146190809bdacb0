package heuristics

import (
	"context"
	"math"

	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/scheduler"
)

// NSQ (normalised schedule quality) invokes the scheduler's single-shot
// variant on allocation a — the derived mutex set is whatever
// DeterministicScheduler.buildModel derives automatically from a's
// same-coalition task pairs lacking a declared precedence, so no separate
// mutex-set plumbing is needed here. A scheduling failure of any kind maps
// to +Inf (spec §4.6: "the node is effectively dead"); otherwise the
// makespan is normalised against the problem's best/worst bounds and
// clamped to [0,1].
func NSQ(ctx context.Context, sched *scheduler.DeterministicScheduler, p *core.ProblemInputs, a *core.Allocation) float64 {
	out, err := sched.SolveQuick(ctx, p, a)
	if err != nil || out.Failure != scheduler.FailureNone {
		return math.Inf(1)
	}

	span := p.ScheduleWorstMakespan - p.ScheduleBestMakespan
	if span <= 0 {
		return 0
	}
	nsq := (out.Schedule.Makespan - p.ScheduleBestMakespan) / span
	if nsq < 0 {
		nsq = 0
	}
	if nsq > 1 {
		nsq = 1
	}
	return nsq
}
