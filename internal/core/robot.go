package core

// RobotID is a stable integer identifier for a Robot.
type RobotID uint32

// Robot is immutable and does not own its Species; callers resolve
// SpeciesID through ProblemInputs.Species.
type Robot struct {
	ID            RobotID
	Name          string
	SpeciesID     SpeciesID
	InitialConfig Configuration
}
