package core

import "gonum.org/v1/gonum/mat"

// Assignment is one robot-to-task pairing.
type Assignment struct {
	Task  TaskID
	Robot RobotID
}

// Allocation is a dense M x N binary matrix: Allocation[m][n] = 1 means
// robot n is in task m's coalition (spec §3).
type Allocation struct {
	M, N int
	data *mat.Dense
}

// NewAllocation builds an all-zero M x N allocation matrix.
func NewAllocation(m, n int) *Allocation {
	return &Allocation{M: m, N: n, data: mat.NewDense(m, n, nil)}
}

// Set assigns robot n to task m's coalition.
func (a *Allocation) Set(task TaskID, robot RobotID) {
	a.data.Set(int(task), int(robot), 1)
}

// Get reports whether robot n is in task m's coalition.
func (a *Allocation) Get(task TaskID, robot RobotID) bool {
	return a.data.At(int(task), int(robot)) != 0
}

// Dense exposes the underlying matrix for TraitAlgebra and scheduler use.
func (a *Allocation) Dense() *mat.Dense { return a.data }

// Coalition returns the robots assigned to task m, in ascending order.
func (a *Allocation) Coalition(task TaskID) []RobotID {
	var out []RobotID
	for n := 0; n < a.N; n++ {
		if a.Get(task, RobotID(n)) {
			out = append(out, RobotID(n))
		}
	}
	return out
}

// SharesRobot reports whether tasks i and j have at least one robot in
// common.
func (a *Allocation) SharesRobot(i, j TaskID) bool {
	for n := 0; n < a.N; n++ {
		if a.Get(i, RobotID(n)) && a.Get(j, RobotID(n)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (a *Allocation) Clone() *Allocation {
	out := NewAllocation(a.M, a.N)
	out.data.Copy(a.data)
	return out
}
