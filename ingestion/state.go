package ingestion

// State is a stage of an ingestion call.
//
// A call moves Idle -> Opening, then through Batching, Embedding,
// Classifying, Writing and Committing once per batch, then Closing and
// finally Done or Failed. A failure to open goes straight to Failed.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateBatching
	StateEmbedding
	StateClassifying
	StateWriting
	StateCommitting
	StateClosing
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateOpening:     "opening",
	StateBatching:    "batching",
	StateEmbedding:   "embedding",
	StateClassifying: "classifying",
	StateWriting:     "writing",
	StateCommitting:  "committing",
	StateClosing:     "closing",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
