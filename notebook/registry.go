// Package notebook manages named execution sessions and their cell
// history. Each notebook owns one kernel session; cells run through it
// one at a time and their output, result and errors are recorded and
// fanned out to subscribers as events.
package notebook

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/inkcell/quire/kernel"
)

// DefaultHistoryLimit bounds a notebook's retained cells when no limit is
// configured.
const DefaultHistoryLimit = 200

// CellStatus tracks a cell through its run.
type CellStatus string

const (
	StatusRunning CellStatus = "running"
	StatusDone    CellStatus = "done"
	StatusFailed  CellStatus = "failed"
)

// Cell is one executed snippet and everything it produced.
type Cell struct {
	ID        int               `json:"id"`
	Language  string            `json:"language"`
	Source    string            `json:"source"`
	Status    CellStatus        `json:"status"`
	Outcome   string            `json:"outcome,omitempty"`
	Rendered  string            `json:"rendered,omitempty"`
	Async     bool              `json:"async,omitempty"`
	Bound     []string          `json:"bound,omitempty"`
	Output    []kernel.Entry    `json:"output,omitempty"`
	Error     *kernel.EvalError `json:"error,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
}

// Notebook is one session plus its cell history. ID, Name and CreatedAt
// are fixed at creation; everything else is guarded by the lock.
type Notebook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	session *kernel.Session
	log     commonlog.Logger
	limit   int

	mu       sync.Mutex
	cells    []*Cell
	nextCell int
	subs     map[int]chan Event
	nextSub  int
}

// Registry holds the live notebooks keyed by id.
type Registry struct {
	mu        sync.RWMutex
	notebooks map[string]*Notebook
	history   int
	log       commonlog.Logger
}

// NewRegistry creates an empty registry whose notebooks keep up to
// historyLimit cells each.
func NewRegistry(historyLimit int) *Registry {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Registry{
		notebooks: map[string]*Notebook{},
		history:   historyLimit,
		log:       commonlog.GetLogger("quire.notebook"),
	}
}

// Create starts a notebook with a fresh session. An empty name gets a
// generated one.
func (r *Registry) Create(name string) (*Notebook, error) {
	id := uuid.NewString()
	if name == "" {
		name = "notebook-" + id[:8]
	}
	session, err := kernel.New(kernel.Options{Name: name})
	if err != nil {
		return nil, err
	}
	n := &Notebook{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		session:   session,
		log:       r.log,
		limit:     r.history,
		subs:      map[int]chan Event{},
	}
	r.mu.Lock()
	r.notebooks[id] = n
	r.mu.Unlock()
	r.log.Infof("created notebook %q (%s)", name, id)
	return n, nil
}

// Get looks up a notebook by id.
func (r *Registry) Get(id string) (*Notebook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notebooks[id]
	return n, ok
}

// List returns the notebooks ordered by creation time.
func (r *Registry) List() []*Notebook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Notebook, 0, len(r.notebooks))
	for _, n := range r.notebooks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Remove drops a notebook, interrupting any run in progress and closing
// its subscriptions. It reports whether the id existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	n, ok := r.notebooks[id]
	delete(r.notebooks, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	n.close()
	r.log.Infof("removed notebook %q (%s)", n.Name, id)
	return true
}

// Session exposes the notebook's kernel session for completion,
// inspection and classification.
func (n *Notebook) Session() *kernel.Session {
	return n.session
}

// Interrupt stops the cell currently running, if any.
func (n *Notebook) Interrupt() {
	n.session.Interrupt()
}

// Run executes source as a new cell and blocks until it finishes. The
// returned cell is a settled snapshot; failures are recorded on it rather
// than returned.
func (n *Notebook) Run(ctx context.Context, language, source string) Cell {
	return n.RunObserved(ctx, language, source, nil)
}

// RunObserved is Run with a callback that sees each event on the run's
// own goroutine, before subscribers do. Streaming handlers use it to
// write events in order without racing the subscription.
func (n *Notebook) RunObserved(ctx context.Context, language, source string, observe func(Event)) Cell {
	n.mu.Lock()
	cell := &Cell{
		ID:        n.nextCell,
		Language:  language,
		Source:    source,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	n.nextCell++
	n.cells = append(n.cells, cell)
	n.trimLocked()
	n.mu.Unlock()

	emit := func(ev Event) {
		ev.Cell = cell.ID
		if observe != nil {
			observe(ev)
		}
		n.publish(ev)
	}

	emit(Event{Type: EventStarted})

	sink := kernel.Func(func(stream, text string) {
		n.mu.Lock()
		cell.Output = append(cell.Output, kernel.Entry{Stream: stream, Text: text})
		n.mu.Unlock()
		emit(Event{Type: EventOutput, Stream: stream, Text: text})
	})

	out, err := n.session.RunLanguage(ctx, language, source, sink)

	n.mu.Lock()
	cell.EndedAt = time.Now()
	if err != nil {
		cell.Status = StatusFailed
		cell.Error = asEvalError(err)
	} else {
		cell.Status = StatusDone
		cell.Outcome = out.Kind.String()
		cell.Rendered = out.Rendered
		cell.Async = out.Async
		cell.Bound = out.Bound
	}
	snapshot := cloneCell(cell)
	n.mu.Unlock()

	if err != nil {
		n.log.Errorf("notebook %s cell %d failed: %s", n.ID, snapshot.ID, snapshot.Error.Error())
		emit(Event{Type: EventError, Error: snapshot.Error})
	} else {
		emit(Event{
			Type:     EventResult,
			Outcome:  snapshot.Outcome,
			Rendered: snapshot.Rendered,
			Async:    snapshot.Async,
			Bound:    snapshot.Bound,
		})
	}
	return snapshot
}

// Cells returns a snapshot of the retained history, oldest first.
func (n *Notebook) Cells() []Cell {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Cell, 0, len(n.cells))
	for _, c := range n.cells {
		out = append(out, cloneCell(c))
	}
	return out
}

// Cell returns a snapshot of one cell by id.
func (n *Notebook) Cell(id int) (Cell, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.cells {
		if c.ID == id {
			return cloneCell(c), true
		}
	}
	return Cell{}, false
}

// Subscribe registers for events. The channel is buffered; a subscriber
// that falls behind loses events rather than stalling the run. The
// cancel function must be called when the subscriber is done.
func (n *Notebook) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextSub
	n.nextSub++
	ch := make(chan Event, 64)
	n.subs[id] = ch
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (n *Notebook) publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (n *Notebook) close() {
	n.session.Interrupt()
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}

func (n *Notebook) trimLocked() {
	if len(n.cells) <= n.limit {
		return
	}
	keep := n.cells[len(n.cells)-n.limit:]
	n.cells = append(make([]*Cell, 0, len(keep)), keep...)
}

func cloneCell(c *Cell) Cell {
	out := *c
	out.Output = append([]kernel.Entry(nil), c.Output...)
	out.Bound = append([]string(nil), c.Bound...)
	return out
}

func asEvalError(err error) *kernel.EvalError {
	var evalErr *kernel.EvalError
	if errors.As(err, &evalErr) {
		return evalErr
	}
	if errors.Is(err, kernel.ErrInterrupted) {
		return &kernel.EvalError{Name: "Interrupted", Message: err.Error()}
	}
	return &kernel.EvalError{Name: "Error", Message: err.Error()}
}
