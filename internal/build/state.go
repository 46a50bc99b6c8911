package build

// State is a pipeline state.
type State int

const (
	// StateValidating checks the configuration before any file is read.
	StateValidating State = iota
	StateCollecting
	StateFingerprinting
	StateAssembling
	StateTransforming
	StateRendering
	StateInjecting
	StateDone
	StateError
)

var stateNames = [...]string{
	StateValidating:     "validating",
	StateCollecting:     "collecting",
	StateFingerprinting: "fingerprinting",
	StateAssembling:     "assembling",
	StateTransforming:   "transforming",
	StateRendering:      "rendering",
	StateInjecting:      "injecting",
	StateDone:           "done",
	StateError:          "error",
}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// RunError is returned when a run fails.
type RunError struct {
	// State is the state the run failed in.
	State State

	// Warnings are the warnings gathered before the failure.
	Warnings []string

	Err error
}

func (e *RunError) Error() string {
	return e.State.String() + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}
