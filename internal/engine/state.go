package engine

// State is the lifecycle state of a pipeline.
type State int

const (
	Idle State = iota
	Processing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a consistent view of a pipeline.
type Snapshot struct {
	State   State   `json:"state"`
	RunID   string  `json:"runId,omitempty"`
	Message string  `json:"message,omitempty"`
	Result  *Result `json:"result,omitempty"`

	// Progress of the current run.
	RenderingVisuals bool `json:"renderingVisuals"`
	ProcessingAudio  bool `json:"processingAudio"`
}
