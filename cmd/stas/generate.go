package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/wire"
)

// newGenerateCmd builds a deterministic synthetic problem instance, in the
// spirit of the teacher's fixture generator: same seed, same instance,
// useful for smoke-testing the CLI and for repair's changes.json workflow
// without hand-authoring a problem.json by hand every time.
func newGenerateCmd() *cobra.Command {
	var (
		seed       int64
		numRobots  int
		numTasks   int
		numSpecies int
		numTraits  int
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic problem instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if numSpecies > numRobots {
				return codedError{exitInvalidInput, fmt.Errorf("num-species (%d) cannot exceed num-robots (%d)", numSpecies, numRobots)}
			}
			p := generateProblem(seed, numRobots, numTasks, numSpecies, numTraits)
			out, err := wire.EncodeProblem(p)
			if err != nil {
				return codedError{exitInvalidInput, err}
			}
			if outPath == "" {
				fmt.Println(string(out))
				return nil
			}
			return os.WriteFile(outPath, out, 0o644)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed; the same seed always produces the same instance")
	cmd.Flags().IntVar(&numRobots, "robots", 4, "number of robots")
	cmd.Flags().IntVar(&numTasks, "tasks", 3, "number of tasks")
	cmd.Flags().IntVar(&numSpecies, "species", 2, "number of distinct robot species")
	cmd.Flags().IntVar(&numTraits, "traits", 3, "trait vector length")
	cmd.Flags().StringVar(&outPath, "out", "", "write the problem document here instead of stdout")
	return cmd
}

func generateProblem(seed int64, numRobots, numTasks, numSpecies, numTraits int) *core.ProblemInputs {
	rng := rand.New(rand.NewSource(seed))

	species := make([]core.Species, numSpecies)
	for s := 0; s < numSpecies; s++ {
		traits := make([]float32, numTraits)
		for t := range traits {
			traits[t] = float32(rng.Intn(3))
		}
		species[s] = core.Species{
			ID:             core.SpeciesID(s),
			Name:           fmt.Sprintf("species-%d", s),
			Traits:         traits,
			BoundingRadius: 0.3 + rng.Float64(),
			Speed:          0.5 + rng.Float64(),
			Planner:        core.PlannerGraph,
		}
	}

	robots := make([]core.Robot, numRobots)
	for n := 0; n < numRobots; n++ {
		robots[n] = core.Robot{
			ID:            core.RobotID(n),
			Name:          fmt.Sprintf("robot-%d", n),
			SpeciesID:     core.SpeciesID(n % numSpecies),
			InitialConfig: core.GraphConfiguration(core.VertexID(rng.Intn(20))),
		}
	}

	tasks := make([]core.Task, numTasks)
	for m := 0; m < numTasks; m++ {
		traits := make([]float32, numTraits)
		for t := range traits {
			traits[t] = float32(rng.Intn(2))
		}
		tasks[m] = core.Task{
			ID:             core.TaskID(m),
			Name:           fmt.Sprintf("task-%d", m),
			StaticDuration: 1 + rng.Float64()*9,
			DesiredTraits:  traits,
			InitialConfig:  core.GraphConfiguration(core.VertexID(rng.Intn(20))),
			TerminalConfig: core.GraphConfiguration(core.VertexID(rng.Intn(20))),
		}
	}

	// A linear precedence chain (task m must finish before m+1 starts) is
	// the simplest non-trivial schedule shape that still exercises
	// scheduler.Solve's precedence handling.
	var precedences []core.PrecedenceConstraint
	for m := 0; m < numTasks-1; m++ {
		precedences = append(precedences, core.PrecedenceConstraint{
			Predecessor: core.TaskID(m),
			Successor:   core.TaskID(m + 1),
		})
	}

	y := mat.NewDense(numTasks, numTraits, nil)
	for m, task := range tasks {
		for t, v := range task.DesiredTraits {
			y.Set(m, t, float64(v))
		}
	}
	q := mat.NewDense(numRobots, numTraits, nil)
	for n, robot := range robots {
		sp := species[int(robot.SpeciesID)]
		for t, v := range sp.Traits {
			q.Set(n, t, float64(v))
		}
	}

	return &core.ProblemInputs{
		Name:                  fmt.Sprintf("generated-seed-%d", seed),
		Robots:                robots,
		Species:               species,
		Tasks:                 tasks,
		Precedences:           precedences,
		DesiredTraits:         y,
		TeamTraits:            q,
		Alpha:                 0.5,
		ScheduleBestMakespan:  10,
		ScheduleWorstMakespan: 100,
		SchedulerParams: core.SchedulerParameters{
			Timeout: 30,
			Threads: 1,
		},
		ItagsParams: core.ItagsParameters{
			Timeout: 30,
		},
	}
}
