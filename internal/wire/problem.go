// Package wire implements the JSON problem-input and solution-output
// documents (spec §6), translating between the wire's tagged-union,
// string-keyed shape and the strongly-typed internal/core model.
package wire

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/core"
)

type motionPlannerDoc struct {
	EnvironmentParameters json.RawMessage `json:"environment_parameters"`
	MPParameters          json.RawMessage `json:"mp_parameters,omitempty"`
	MPType                string          `json:"mp_type"`
}

type speciesDoc struct {
	Name           string    `json:"name"`
	Traits         []float32 `json:"traits"`
	BoundingRadius float64   `json:"bounding_radius"`
	Speed          float64   `json:"speed"`
	MPIndex        int       `json:"mp_index"`
}

type robotDoc struct {
	Name                 string           `json:"name"`
	Species              string           `json:"species"`
	InitialConfiguration configurationDoc `json:"initial_configuration"`
}

type taskDoc struct {
	Name                  string           `json:"name"`
	Duration              float64          `json:"duration"`
	DesiredTraits         []float32        `json:"desired_traits"`
	InitialConfiguration  configurationDoc `json:"initial_configuration"`
	TerminalConfiguration configurationDoc `json:"terminal_configuration"`
}

type schedulerParametersDoc struct {
	Timeout                     float64 `json:"timeout"`
	Threads                     int     `json:"threads"`
	MIPGap                      float64 `json:"mip_gap"`
	HierarchicalObjective       bool    `json:"hierarchical_objective"`
	ComputeTransitionHeuristics bool    `json:"compute_transition_heuristics"`
}

type itagsParametersDoc struct {
	Timeout      float64 `json:"timeout"`
	RetainClosed bool    `json:"retain_closed"`
	RetainPruned bool    `json:"retain_pruned"`
}

// problemDoc is the top-level problem-input document (spec §6).
type problemDoc struct {
	Name                     string                 `json:"name,omitempty"`
	MotionPlanners           []motionPlannerDoc     `json:"motion_planners,omitempty"`
	Species                  []speciesDoc           `json:"species"`
	Robots                   []robotDoc             `json:"robots"`
	Tasks                    []taskDoc              `json:"tasks"`
	PrecedenceConstraints    [][2]int               `json:"precedence_constraints,omitempty"`
	PlanTaskIndices          []int                  `json:"plan_task_indices,omitempty"`
	Alpha                    float64                `json:"alpha"`
	BestMakespan             float64                `json:"best_makespan,omitempty"`
	WorstMakespan            float64                `json:"worst_makespan"`
	SchedulerParameters      schedulerParametersDoc `json:"scheduler_parameters,omitempty"`
	ItagsParameters          itagsParametersDoc     `json:"itags_parameters,omitempty"`
	RobotTraitsMatrixReduction string               `json:"robot_traits_matrix_reduction,omitempty"`
}

// DecodeProblem parses a problem-input document (spec §6).
func DecodeProblem(data []byte) (*core.ProblemInputs, error) {
	var doc problemDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("wire: decode problem: %w", err)
	}

	speciesByName := make(map[string]core.SpeciesID, len(doc.Species))
	species := make([]core.Species, len(doc.Species))
	for i, s := range doc.Species {
		species[i] = core.Species{
			ID:             core.SpeciesID(i),
			Name:           s.Name,
			Traits:         s.Traits,
			BoundingRadius: s.BoundingRadius,
			Speed:          s.Speed,
			Planner:        plannerKindForMPIndex(doc.MotionPlanners, s.MPIndex),
		}
		speciesByName[s.Name] = core.SpeciesID(i)
	}

	robots := make([]core.Robot, len(doc.Robots))
	for i, r := range doc.Robots {
		cfg, err := decodeConfiguration(r.InitialConfiguration)
		if err != nil {
			return nil, fmt.Errorf("wire: robot[%d]: %w", i, err)
		}
		speciesID, ok := speciesByName[r.Species]
		if !ok {
			return nil, fmt.Errorf("wire: robot[%d]: unknown species %q", i, r.Species)
		}
		robots[i] = core.Robot{ID: core.RobotID(i), Name: r.Name, SpeciesID: speciesID, InitialConfig: cfg}
	}

	tasks := make([]core.Task, len(doc.Tasks))
	yRows := make([][]float64, len(doc.Tasks))
	traitCols := 0
	for i, tk := range doc.Tasks {
		initCfg, err := decodeConfiguration(tk.InitialConfiguration)
		if err != nil {
			return nil, fmt.Errorf("wire: task[%d]: %w", i, err)
		}
		termCfg, err := decodeConfiguration(tk.TerminalConfiguration)
		if err != nil {
			return nil, fmt.Errorf("wire: task[%d]: %w", i, err)
		}
		tasks[i] = core.Task{
			ID:             core.TaskID(i),
			Name:           tk.Name,
			StaticDuration: tk.Duration,
			DesiredTraits:  tk.DesiredTraits,
			InitialConfig:  initCfg,
			TerminalConfig: termCfg,
		}
		row := make([]float64, len(tk.DesiredTraits))
		for j, v := range tk.DesiredTraits {
			row[j] = float64(v)
		}
		yRows[i] = row
		if len(row) > traitCols {
			traitCols = len(row)
		}
	}

	precedences := make([]core.PrecedenceConstraint, len(doc.PrecedenceConstraints))
	for i, pc := range doc.PrecedenceConstraints {
		precedences[i] = core.PrecedenceConstraint{Predecessor: core.TaskID(pc[0]), Successor: core.TaskID(pc[1])}
	}

	y := mat.NewDense(len(tasks), traitCols, nil)
	for i, row := range yRows {
		for j, v := range row {
			y.Set(i, j, v)
		}
	}
	q := mat.NewDense(len(robots), traitCols, nil)
	for i, r := range doc.Robots {
		sp := species[speciesByName[r.Species]]
		for j := 0; j < traitCols && j < len(sp.Traits); j++ {
			q.Set(i, j, float64(sp.Traits[j]))
		}
	}

	return &core.ProblemInputs{
		Name:            doc.Name,
		Robots:          robots,
		Species:         species,
		Tasks:           tasks,
		Precedences:     precedences,
		PlanTaskIndices: doc.PlanTaskIndices,
		DesiredTraits:   y,
		TeamTraits:      q,
		Alpha:           doc.Alpha,

		ScheduleBestMakespan:  doc.BestMakespan,
		ScheduleWorstMakespan: doc.WorstMakespan,

		SchedulerParams: core.SchedulerParameters{
			Timeout:                     doc.SchedulerParameters.Timeout,
			Threads:                     doc.SchedulerParameters.Threads,
			MIPGap:                      doc.SchedulerParameters.MIPGap,
			HierarchicalObjective:       doc.SchedulerParameters.HierarchicalObjective,
			ComputeTransitionHeuristics: doc.SchedulerParameters.ComputeTransitionHeuristics,
		},
		ItagsParams: core.ItagsParameters{
			Timeout:      doc.ItagsParameters.Timeout,
			RetainClosed: doc.ItagsParameters.RetainClosed,
			RetainPruned: doc.ItagsParameters.RetainPruned,
		},
	}, nil
}

func plannerKindForMPIndex(planners []motionPlannerDoc, idx int) core.PlannerKind {
	if idx < 0 || idx >= len(planners) {
		return core.PlannerUnknown
	}
	switch planners[idx].MPType {
	case "graph":
		return core.PlannerGraph
	case "grid":
		return core.PlannerGrid
	default:
		return core.PlannerOMPL
	}
}

// EncodeProblem serialises p back into the wire document shape.
func EncodeProblem(p *core.ProblemInputs) ([]byte, error) {
	doc := problemDoc{
		Name:          p.Name,
		Alpha:         p.Alpha,
		BestMakespan:  p.ScheduleBestMakespan,
		WorstMakespan: p.ScheduleWorstMakespan,
		SchedulerParameters: schedulerParametersDoc{
			Timeout:                     p.SchedulerParams.Timeout,
			Threads:                     p.SchedulerParams.Threads,
			MIPGap:                      p.SchedulerParams.MIPGap,
			HierarchicalObjective:       p.SchedulerParams.HierarchicalObjective,
			ComputeTransitionHeuristics: p.SchedulerParams.ComputeTransitionHeuristics,
		},
		ItagsParameters: itagsParametersDoc{
			Timeout:      p.ItagsParams.Timeout,
			RetainClosed: p.ItagsParams.RetainClosed,
			RetainPruned: p.ItagsParams.RetainPruned,
		},
		PlanTaskIndices: p.PlanTaskIndices,
	}

	plannerIndex := make(map[core.PlannerKind]int)
	for _, s := range p.Species {
		mpIndex := -1
		if s.Planner != core.PlannerUnknown {
			idx, ok := plannerIndex[s.Planner]
			if !ok {
				idx = len(doc.MotionPlanners)
				plannerIndex[s.Planner] = idx
				doc.MotionPlanners = append(doc.MotionPlanners, motionPlannerDoc{MPType: s.Planner.String()})
			}
			mpIndex = idx
		}
		doc.Species = append(doc.Species, speciesDoc{
			Name:           s.Name,
			Traits:         s.Traits,
			BoundingRadius: s.BoundingRadius,
			Speed:          s.Speed,
			MPIndex:        mpIndex,
		})
	}

	speciesName := func(id core.SpeciesID) string {
		if sp := p.SpeciesByID(id); sp != nil {
			return sp.Name
		}
		return ""
	}

	for _, r := range p.Robots {
		doc.Robots = append(doc.Robots, robotDoc{
			Name:                 r.Name,
			Species:              speciesName(r.SpeciesID),
			InitialConfiguration: encodeConfiguration(r.InitialConfig),
		})
	}

	for _, tk := range p.Tasks {
		doc.Tasks = append(doc.Tasks, taskDoc{
			Name:                  tk.Name,
			Duration:              tk.StaticDuration,
			DesiredTraits:         tk.DesiredTraits,
			InitialConfiguration:  encodeConfiguration(tk.InitialConfig),
			TerminalConfiguration: encodeConfiguration(tk.TerminalConfig),
		})
	}

	for _, pc := range p.Precedences {
		doc.PrecedenceConstraints = append(doc.PrecedenceConstraints, [2]int{int(pc.Predecessor), int(pc.Successor)})
	}

	return json.MarshalIndent(doc, "", "  ")
}
