package core

// TaskID is a stable integer identifier for a Task, and also its row index
// in the desired-traits matrix and allocation matrix.
type TaskID uint32

// Task is immutable.
type Task struct {
	ID             TaskID
	Name           string
	StaticDuration float64 // seconds, excludes any motion-plan contribution
	DesiredTraits  []float32 // length T
	InitialConfig  Configuration
	TerminalConfig Configuration
}
