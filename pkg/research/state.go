package research

// State is a step of the research loop.
type State int

const (
	StatePreparing State = iota
	StateSearching
	StateEvaluating
	StateExpanding
	StateAnswering
	StateAggregating
	StateCheckSufficiency
	StateFinalizing
	StateDone
)

var stateNames = map[State]string{
	StatePreparing:        "preparing",
	StateSearching:        "searching",
	StateEvaluating:       "evaluating",
	StateExpanding:        "expanding",
	StateAnswering:        "answering",
	StateAggregating:      "aggregating",
	StateCheckSufficiency: "check_sufficiency",
	StateFinalizing:       "finalizing",
	StateDone:             "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event reports progress of a running question.
type Event struct {
	State   State
	URL     string
	Message string
}

type ProgressFunc func(Event)
