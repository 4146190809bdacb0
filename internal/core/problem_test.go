package core

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func trivialProblem() *ProblemInputs {
	return &ProblemInputs{
		Robots:  []Robot{{ID: 0, SpeciesID: 0, InitialConfig: GraphConfiguration(0)}},
		Species: []Species{{ID: 0, Name: "bot", Traits: []float32{1}, Speed: 1}},
		Tasks: []Task{
			{ID: 0, StaticDuration: 1, DesiredTraits: []float32{1},
				InitialConfig: GraphConfiguration(0), TerminalConfig: GraphConfiguration(0)},
		},
		DesiredTraits:         mat.NewDense(1, 1, []float64{1}),
		TeamTraits:            mat.NewDense(1, 1, []float64{1}),
		Alpha:                 1,
		ScheduleBestMakespan:  1,
		ScheduleWorstMakespan: 1,
	}
}

func TestProblemInputsValidateTrivial(t *testing.T) {
	p := trivialProblem()
	require.NoError(t, p.Validate())
}

func TestProblemInputsValidateBadPrecedence(t *testing.T) {
	p := trivialProblem()
	p.Precedences = []PrecedenceConstraint{{Predecessor: 0, Successor: 5}}
	require.Error(t, p.Validate())
}

func TestProblemInputsValidateInfeasibleTeam(t *testing.T) {
	p := trivialProblem()
	p.DesiredTraits = mat.NewDense(1, 1, []float64{2})
	err := p.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "infeasible team")
}

func TestProblemInputsValidateBadAlpha(t *testing.T) {
	p := trivialProblem()
	p.Alpha = 1.5
	require.Error(t, p.Validate())
}

func TestProblemInputsValidateMakespanOrdering(t *testing.T) {
	p := trivialProblem()
	p.ScheduleBestMakespan = 5
	p.ScheduleWorstMakespan = 1
	require.Error(t, p.Validate())
}
