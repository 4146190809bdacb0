package wire

import (
	"encoding/json"
	"sort"

	"github.com/elektrokombinacija/stas/internal/core"
)

// Statistics mirrors spec §6's statistics block. Timing fields are filled in
// by the caller after a run completes; the search/scheduler packages
// themselves stay wall-clock free so a replay is deterministic. cmd/stas
// fills TotalTimeSeconds but leaves the per-phase times, NumMotionPlans and
// NumMotionPlanFailures at zero.
type Statistics struct {
	NodesGenerated int
	NodesExpanded  int
	NodesEvaluated int
	NodesPruned    int
	NodesDeadEnd   int

	TotalTimeSeconds          float64
	TaskAllocationTimeSeconds float64
	SchedulingTimeSeconds     float64
	MotionPlanningTimeSeconds float64

	NumMotionPlans         int
	NumMotionPlanFailures  int
	NumSchedulingFailures  int
	NumSchedulingIterations int
}

// Solution is everything EncodeSolution needs to build spec §6's solution
// document: the problem (for names/robot order), the winning allocation,
// its schedule, the realised per-robot transitions, and run statistics.
type Solution struct {
	Problem     *core.ProblemInputs
	Allocation  *core.Allocation
	Schedule    *core.Schedule
	Transitions map[core.TransitionKey]core.TransitionInfo
	Stats       Statistics
}

type taskResultDoc struct {
	ID        int     `json:"id"`
	Name      string  `json:"name,omitempty"`
	Start     float64 `json:"start"`
	Finish    float64 `json:"finish"`
	Coalition []int   `json:"coalition"`
}

type transitionDoc struct {
	From     *int    `json:"from"`
	To       int     `json:"to"`
	Robot    int     `json:"robot"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
}

type robotResultDoc struct {
	ID             int             `json:"id"`
	Name           string          `json:"name,omitempty"`
	IndividualPlan []int           `json:"individual_plan"`
	Transitions    []transitionDoc `json:"transitions"`
}

type statisticsDoc struct {
	NodesGenerated          int     `json:"nodes_generated"`
	NodesExpanded           int     `json:"nodes_expanded"`
	NodesEvaluated          int     `json:"nodes_evaluated"`
	NodesPruned             int     `json:"nodes_pruned"`
	NodesDeadEnd            int     `json:"nodes_dead_end"`
	TotalTime               float64 `json:"total_time"`
	TaskAllocationTime      float64 `json:"task_allocation_time"`
	SchedulingTime          float64 `json:"scheduling_time"`
	MotionPlanningTime      float64 `json:"motion_planning_time"`
	NumMotionPlans          int     `json:"num_motion_plans"`
	NumMotionPlanFailures   int     `json:"num_motion_plan_failures"`
	NumSchedulingFailures   int     `json:"num_scheduling_failures"`
	NumSchedulingIterations int     `json:"num_scheduling_iterations"`
}

type solutionDoc struct {
	Allocation                 [][]int             `json:"allocation"`
	Makespan                   float64             `json:"makespan"`
	Tasks                      []taskResultDoc      `json:"tasks"`
	Robots                     []robotResultDoc     `json:"robots"`
	PrecedenceConstraints      [][2]int            `json:"precedence_constraints,omitempty"`
	PrecedenceSetMutexConstraints [][2]int         `json:"precedence_set_mutex_constraints,omitempty"`
	Statistics                 statisticsDoc       `json:"statistics"`
}

func robotPlan(p *core.ProblemInputs, alloc *core.Allocation, sched *core.Schedule, robot core.RobotID) []int {
	type entry struct {
		task  core.TaskID
		start float64
	}
	var entries []entry
	for m := 0; m < p.NumTasks(); m++ {
		task := core.TaskID(m)
		if alloc.Get(task, robot) {
			entries = append(entries, entry{task: task, start: sched.Timepoints[m].Start})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].start < entries[j].start })
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = int(e.task)
	}
	return out
}

// EncodeSolution serialises s into spec §6's solution document.
func EncodeSolution(s Solution) ([]byte, error) {
	p, alloc, sched := s.Problem, s.Allocation, s.Schedule

	doc := solutionDoc{
		Makespan: sched.Makespan,
		Statistics: statisticsDoc{
			NodesGenerated:          s.Stats.NodesGenerated,
			NodesExpanded:           s.Stats.NodesExpanded,
			NodesEvaluated:          s.Stats.NodesEvaluated,
			NodesPruned:             s.Stats.NodesPruned,
			NodesDeadEnd:            s.Stats.NodesDeadEnd,
			TotalTime:               s.Stats.TotalTimeSeconds,
			TaskAllocationTime:      s.Stats.TaskAllocationTimeSeconds,
			SchedulingTime:          s.Stats.SchedulingTimeSeconds,
			MotionPlanningTime:      s.Stats.MotionPlanningTimeSeconds,
			NumMotionPlans:          s.Stats.NumMotionPlans,
			NumMotionPlanFailures:   s.Stats.NumMotionPlanFailures,
			NumSchedulingFailures:   s.Stats.NumSchedulingFailures,
			NumSchedulingIterations: s.Stats.NumSchedulingIterations,
		},
	}

	doc.Allocation = make([][]int, p.NumTasks())
	for m := 0; m < p.NumTasks(); m++ {
		row := make([]int, p.NumRobots())
		for n := 0; n < p.NumRobots(); n++ {
			if alloc.Get(core.TaskID(m), core.RobotID(n)) {
				row[n] = 1
			}
		}
		doc.Allocation[m] = row
	}

	for m, tk := range p.Tasks {
		coalition := alloc.Coalition(core.TaskID(m))
		ids := make([]int, len(coalition))
		for i, r := range coalition {
			ids[i] = int(r)
		}
		doc.Tasks = append(doc.Tasks, taskResultDoc{
			ID:        m,
			Name:      tk.Name,
			Start:     sched.Timepoints[m].Start,
			Finish:    sched.Timepoints[m].Finish,
			Coalition: ids,
		})
	}

	for n, r := range p.Robots {
		robot := core.RobotID(n)
		var transitions []transitionDoc
		for key, info := range s.Transitions {
			if key.Robot != robot {
				continue
			}
			td := transitionDoc{To: int(key.To), Robot: int(key.Robot), Status: info.Status.String(), Duration: info.Duration}
			if key.From != core.InitialTransitionFrom {
				from := int(key.From)
				td.From = &from
			}
			transitions = append(transitions, td)
		}
		sort.Slice(transitions, func(i, j int) bool {
			if transitions[i].To != transitions[j].To {
				return transitions[i].To < transitions[j].To
			}
			return (transitions[i].From == nil) || (transitions[j].From != nil && *transitions[i].From < *transitions[j].From)
		})
		doc.Robots = append(doc.Robots, robotResultDoc{
			ID:             n,
			Name:           r.Name,
			IndividualPlan: robotPlan(p, alloc, sched, robot),
			Transitions:    transitions,
		})
	}

	for _, pc := range p.Precedences {
		doc.PrecedenceConstraints = append(doc.PrecedenceConstraints, [2]int{int(pc.Predecessor), int(pc.Successor)})
	}
	for _, mp := range sched.PrecedenceSetMutexConstraints {
		doc.PrecedenceSetMutexConstraints = append(doc.PrecedenceSetMutexConstraints, [2]int{int(mp.First), int(mp.Second)})
	}

	return json.MarshalIndent(doc, "", "  ")
}
