package triage

// State is the per-(repo, issue) position in the idempotency machine.
type State int

const (
	StateUnclaimed State = iota
	StateClaimed
	StateActionTaken
	StateSkipped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnclaimed:
		return "unclaimed"
	case StateClaimed:
		return "claimed"
	case StateActionTaken:
		return "action_taken"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one idempotency layer. Layers are composed
// by explicit sequencing: Proceed advances to the next layer, Skip ends the
// task without action, Abort propagates an error to the caller.
type Outcome int

const (
	Proceed Outcome = iota
	Skip
	Abort
)

// layerResult carries an Outcome plus the layer's supporting detail.
type layerResult struct {
	outcome Outcome
	reason  string
	err     error
}

func proceed() layerResult {
	return layerResult{outcome: Proceed}
}

func skip(reason string) layerResult {
	return layerResult{outcome: Skip, reason: reason}
}

func abort(err error) layerResult {
	return layerResult{outcome: Abort, err: err}
}
