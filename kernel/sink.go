package kernel

import (
	"io"
	"strings"
	"sync"
)

// Stream names passed to Sink.Write.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Sink receives output the snippet produces while it runs, in the order
// it was produced. Writes happen on the goroutine driving the run.
type Sink interface {
	Write(stream, text string)
}

// Discard drops all output.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Write(string, string) {}

// Func adapts a function to the Sink interface.
type Func func(stream, text string)

func (f Func) Write(stream, text string) { f(stream, text) }

// Entry is one captured write.
type Entry struct {
	Stream string `json:"stream"`
	Text   string `json:"text"`
}

// Buffer collects writes in arrival order. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
}

func (b *Buffer) Write(stream, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, Entry{Stream: stream, Text: text})
}

// Entries returns a copy of the captured writes.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Text concatenates the captured text across both streams.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, e := range b.entries {
		sb.WriteString(e.Text)
	}
	return sb.String()
}

// Writers routes stdout and stderr writes to two io.Writers. A nil Stderr
// falls back to Stdout; a nil Stdout drops the write.
type Writers struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (w Writers) Write(stream, text string) {
	out := w.Stdout
	if stream == StreamStderr && w.Stderr != nil {
		out = w.Stderr
	}
	if out == nil {
		return
	}
	io.WriteString(out, text)
}
