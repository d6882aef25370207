package notebook

import "github.com/inkcell/quire/kernel"

// EventType tags a moment in a cell's execution.
type EventType string

const (
	// EventStarted fires when a cell begins running.
	EventStarted EventType = "started"
	// EventOutput carries one console write.
	EventOutput EventType = "output"
	// EventResult ends a successful run.
	EventResult EventType = "result"
	// EventError ends a failed run.
	EventError EventType = "error"
)

// Event is one notebook occurrence, streamed to subscribers in the order
// it happened. Fields beyond Type and Cell are set per type: Stream and
// Text for output, Outcome and Rendered for results, Error for failures.
type Event struct {
	Type     EventType         `json:"type"`
	Cell     int               `json:"cell"`
	Stream   string            `json:"stream,omitempty"`
	Text     string            `json:"text,omitempty"`
	Outcome  string            `json:"outcome,omitempty"`
	Rendered string            `json:"rendered,omitempty"`
	Async    bool              `json:"async,omitempty"`
	Bound    []string          `json:"bound,omitempty"`
	Error    *kernel.EvalError `json:"error,omitempty"`
}
