// Package kernel embeds a JavaScript interpreter behind a session API:
// snippets run one at a time against a persistent global namespace, with
// console output streamed to a sink and the final expression's value
// captured for display.
package kernel

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/tliron/commonlog"

	"github.com/inkcell/quire/render"
	"github.com/inkcell/quire/scan"
)

// LanguageJavaScript is the language tag the runtime executes. Cells
// tagged with any other language are accepted but not run.
const LanguageJavaScript = "javascript"

// compileName labels snippets in interpreter stack traces.
const compileName = "cell"

// globalsProg lists every global property name, enumerable or not. The
// program runs sloppy so `this` is the global object.
var globalsProg = goja.MustCompile("quire:globals", "Object.getOwnPropertyNames(this)", false)

// Session is one persistent evaluation context. Methods are safe for
// concurrent use; runs serialize on an internal lock, so a long-running
// snippet delays the next one rather than racing it.
type Session struct {
	name      string
	log       commonlog.Logger
	inspector *Introspector

	mu   sync.Mutex
	vm   *goja.Runtime
	sink Sink

	// base snapshots the interpreter's own globals at creation; names
	// outside it are the user's.
	base map[string]bool
}

// Options configure a new session.
type Options struct {
	// Name labels the session in logs.
	Name string

	// Sink receives console output when a run does not bring its own.
	// Nil discards.
	Sink Sink
}

// New creates a session with a fresh interpreter, a console wired to the
// sink, and the inspection helpers installed.
func New(opts Options) (*Session, error) {
	name := opts.Name
	if name == "" {
		name = "session"
	}
	sink := opts.Sink
	if sink == nil {
		sink = Discard
	}
	vm := goja.New()
	inspector, err := NewIntrospector(vm)
	if err != nil {
		return nil, err
	}
	s := &Session{
		name:      name,
		log:       commonlog.GetLogger("quire.kernel"),
		inspector: inspector,
		vm:        vm,
		sink:      sink,
	}
	if err := s.installConsole(); err != nil {
		return nil, err
	}
	s.base = s.globalNames()
	return s, nil
}

// Name returns the session's display name.
func (s *Session) Name() string {
	return s.name
}

// Run executes src as JavaScript. See RunLanguage.
func (s *Session) Run(ctx context.Context, src string, sink Sink) (Outcome, error) {
	return s.RunLanguage(ctx, LanguageJavaScript, src, sink)
}

// RunLanguage executes one cell. A non-JavaScript language yields an
// unsupported outcome without touching the interpreter, so notebooks can
// hold prose or data cells. Output goes to sink for the duration of the
// run; nil keeps the session default. Cancelling ctx interrupts the
// interpreter and the run returns ErrInterrupted.
//
// Before running, let and const are rewritten to var and the source is
// wrapped in an invocation shell that republishes its declarations onto
// the session namespace, so bindings survive into later runs. When the
// source contains a top-level await the shell is async and the run waits
// for its promise to settle.
func (s *Session) RunLanguage(ctx context.Context, language, src string, sink Sink) (Outcome, error) {
	lang := normalizeLanguage(language)
	if lang != LanguageJavaScript {
		s.log.Debugf("session %s: skipping %s cell", s.name, lang)
		return Outcome{Kind: OutcomeUnsupported, Language: lang}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sink != nil {
		prev := s.sink
		s.sink = sink
		defer func() { s.sink = prev }()
	}

	res := scan.Scan(scan.RewriteDeclarations(src))
	names := res.DeclaredNames()
	wrapped := res.Wrap(names)

	prog, err := goja.Compile(compileName, wrapped.Source, false)
	if err != nil {
		// Recompile the raw source so the reported position matches what
		// the user typed, not the shell.
		if _, rawErr := goja.Compile(compileName, src, false); rawErr != nil {
			err = rawErr
		}
		return Outcome{Language: lang}, translateRunError(err)
	}

	s.vm.ClearInterrupt()
	stop := s.watch(ctx)
	value, runErr := s.vm.RunProgram(prog)
	stop()

	out := Outcome{Language: lang, Async: wrapped.Async}
	if runErr != nil {
		terr := translateRunError(runErr)
		s.log.Debugf("session %s: run failed: %s", s.name, terr.Error())
		return out, terr
	}

	if wrapped.Async {
		value, runErr = s.settle(ctx, value)
		if runErr != nil {
			return out, runErr
		}
	}

	out.Bound = s.boundNames(names)
	if value == nil || goja.IsUndefined(value) {
		out.Kind = OutcomeNone
		return out, nil
	}
	out.Kind = OutcomeValue
	out.Value = value
	out.Rendered = s.inspector.Preview(value)
	return out, nil
}

// Interrupt stops the run in progress, if any. The interrupted run
// returns ErrInterrupted. Calling with no run in progress is harmless;
// the flag is cleared when the next run starts.
func (s *Session) Interrupt() {
	s.vm.Interrupt(ErrInterrupted)
}

// Names lists the user-defined globals, sorted.
func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

// VarInfo summarizes one session global.
type VarInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Preview string `json:"preview"`
}

// Vars summarizes the user-defined globals, sorted by name.
func (s *Session) Vars() []VarInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	global := s.vm.GlobalObject()
	var out []VarInfo
	for _, name := range s.namesLocked() {
		info := VarInfo{Name: name}
		if v := safeGet(global, name); v != nil {
			info.Type = s.inspector.TypeOf(v)
			info.Preview = render.Truncate(s.inspector.Preview(v), 100)
		}
		out = append(out, info)
	}
	return out
}

// Lookup resolves a dotted path against the session globals. Optional
// chaining operators count as plain dots. The second result is false when
// any step of the path is missing.
func (s *Session) Lookup(path string) (goja.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(path)
}

// Inspect resolves path and describes the value found there.
func (s *Session) Inspect(path string) (Inspection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookupLocked(path)
	if !ok {
		return Inspection{}, false
	}
	return s.inspector.Inspect(v), true
}

// InspectValue describes an arbitrary value from this session's
// interpreter.
func (s *Session) InspectValue(v goja.Value) Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspector.Inspect(v)
}

// Preview renders a value from this session's interpreter as one line.
func (s *Session) Preview(v goja.Value) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspector.Preview(v)
}

// Candidate is one completion suggestion.
type Candidate struct {
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Complete resolves the completion context at cursor and proposes
// candidates for it: members of the resolved object for member and
// bracket access, otherwise session names, interpreter globals and
// keywords matching the typed prefix. String and comment contexts get no
// candidates.
func (s *Session) Complete(src string, cursor int) (scan.Context, []Candidate) {
	cx := scan.ContextAt(src, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch cx.Kind {
	case scan.ContextString, scan.ContextComment:
		return cx, nil
	case scan.ContextMember, scan.ContextBracket:
		return cx, s.memberCandidates(cx)
	}
	return cx, s.globalCandidates(cx)
}

// Classify reports whether src is a complete program, an unfinished one,
// or one that can never parse.
func (s *Session) Classify(src string) scan.Verdict {
	return scan.Classify(src)
}

func (s *Session) memberCandidates(cx scan.Context) []Candidate {
	if cx.ObjectPath == "" {
		return nil
	}
	v, ok := s.lookupLocked(cx.ObjectPath)
	if !ok {
		return nil
	}
	obj := boxValue(s.vm, v)
	var out []Candidate
	for _, name := range s.inspector.MemberNames(v) {
		if !strings.HasPrefix(name, cx.Prefix) {
			continue
		}
		c := Candidate{Label: name, Kind: "property"}
		if obj != nil {
			if pv := safeGet(obj, name); pv != nil {
				if _, callable := goja.AssertFunction(pv); callable {
					c.Kind = "method"
				}
				c.Detail = render.Truncate(s.inspector.Preview(pv), 60)
			}
		}
		out = append(out, c)
	}
	return out
}

func (s *Session) globalCandidates(cx scan.Context) []Candidate {
	var out []Candidate
	global := s.vm.GlobalObject()
	seen := map[string]bool{}

	for _, name := range s.namesLocked() {
		if !strings.HasPrefix(name, cx.Prefix) {
			continue
		}
		seen[name] = true
		c := Candidate{Label: name, Kind: "variable"}
		if v := safeGet(global, name); v != nil {
			if _, callable := goja.AssertFunction(v); callable {
				c.Kind = "function"
			}
			c.Detail = render.Truncate(s.inspector.Preview(v), 60)
		}
		out = append(out, c)
	}

	builtins := make([]string, 0, len(s.base))
	for name := range s.base {
		builtins = append(builtins, name)
	}
	sort.Strings(builtins)
	for _, name := range builtins {
		if seen[name] || !strings.HasPrefix(name, cx.Prefix) {
			continue
		}
		seen[name] = true
		c := Candidate{Label: name, Kind: "global"}
		if v := safeGet(global, name); v != nil {
			if _, callable := goja.AssertFunction(v); callable {
				c.Kind = "function"
			}
		}
		out = append(out, c)
	}

	for _, word := range scan.ReservedWords() {
		if seen[word] || !strings.HasPrefix(word, cx.Prefix) {
			continue
		}
		out = append(out, Candidate{Label: word, Kind: "keyword"})
	}
	return out
}

func (s *Session) namesLocked() []string {
	var names []string
	for name := range s.globalNames() {
		if !s.base[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Session) lookupLocked(path string) (goja.Value, bool) {
	path = strings.ReplaceAll(path, "?.", ".")
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	var v goja.Value = s.vm.GlobalObject()
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		obj := boxValue(s.vm, v)
		if obj == nil {
			return nil, false
		}
		next := safeGet(obj, part)
		if next == nil {
			return nil, false
		}
		v = next
	}
	return v, true
}

// watch interrupts the interpreter when ctx is canceled. The returned
// stop must be called when the run returns; it also clears any pending
// interrupt so the next run starts clean.
func (s *Session) watch(ctx context.Context) func() {
	if ctx == nil || ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() {
		close(done)
		s.vm.ClearInterrupt()
	}
}

// settle resolves the shell promise of an async run. Microtasks drain
// inside RunProgram, so a promise still pending here waits on work nothing
// will ever do; that is an error, not a hang.
func (s *Session) settle(ctx context.Context, v goja.Value) (goja.Value, error) {
	promise, ok := safeExport(v).(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result(), nil
	case goja.PromiseStateRejected:
		return nil, thrownError(promise.Result())
	default:
		if ctx != nil && ctx.Err() != nil {
			return nil, ErrInterrupted
		}
		return nil, &EvalError{Name: "Error", Message: "top-level await never settled"}
	}
}

// boundNames filters the extracted declarations down to names that now
// exist on the session namespace.
func (s *Session) boundNames(names []string) []string {
	global := s.vm.GlobalObject()
	var bound []string
	for _, name := range names {
		if safeGet(global, name) != nil {
			bound = append(bound, name)
		}
	}
	return bound
}

func (s *Session) globalNames() map[string]bool {
	names := map[string]bool{}
	v, err := s.vm.RunProgram(globalsProg)
	if err != nil {
		return names
	}
	items, ok := v.Export().([]interface{})
	if !ok {
		return names
	}
	for _, item := range items {
		if name, ok := item.(string); ok {
			names[name] = true
		}
	}
	return names
}

func (s *Session) installConsole() error {
	console := s.vm.NewObject()
	emit := func(stream string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				if text, ok := safeExport(arg).(string); ok {
					parts = append(parts, text)
				} else {
					parts = append(parts, s.inspector.Preview(arg))
				}
			}
			s.sink.Write(stream, strings.Join(parts, " ")+"\n")
			return goja.Undefined()
		}
	}
	stdout := emit(StreamStdout)
	stderr := emit(StreamStderr)
	methods := []struct {
		name string
		fn   func(goja.FunctionCall) goja.Value
	}{
		{"log", stdout}, {"info", stdout}, {"debug", stdout},
		{"warn", stderr}, {"error", stderr}, {"trace", stderr},
	}
	for _, m := range methods {
		if err := console.Set(m.name, m.fn); err != nil {
			return err
		}
	}
	return s.vm.Set("console", console)
}

func normalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	switch lang {
	case "", "js", LanguageJavaScript:
		return LanguageJavaScript
	}
	return lang
}
