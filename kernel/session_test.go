package kernel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(Options{Name: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func run(t *testing.T, s *Session, src string) Outcome {
	t.Helper()
	out, err := s.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Run(%q) error = %v", src, err)
	}
	return out
}

func TestRunFinalExpression(t *testing.T) {
	s := newTestSession(t)
	out := run(t, s, "1 + 2")
	if out.Kind != OutcomeValue {
		t.Fatalf("Kind = %v, want %v", out.Kind, OutcomeValue)
	}
	if out.Rendered != "3" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "3")
	}
}

func TestRunStatementHasNoValue(t *testing.T) {
	s := newTestSession(t)
	out := run(t, s, "var a = 1")
	if out.Kind != OutcomeNone {
		t.Errorf("Kind = %v, want %v", out.Kind, OutcomeNone)
	}
	if len(out.Bound) != 1 || out.Bound[0] != "a" {
		t.Errorf("Bound = %v, want [a]", out.Bound)
	}
}

func TestStatePersistsAcrossRuns(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var x = 41")
	out := run(t, s, "x + 1")
	if out.Rendered != "42" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "42")
	}
}

func TestLetConstPersistAcrossRuns(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "let y = 10")
	run(t, s, "const z = 32")
	out := run(t, s, "y + z")
	if out.Rendered != "42" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "42")
	}
}

func TestFunctionDeclarationPersists(t *testing.T) {
	s := newTestSession(t)
	out := run(t, s, "function greet(name) { return 'hi ' + name }")
	if len(out.Bound) != 1 || out.Bound[0] != "greet" {
		t.Fatalf("Bound = %v, want [greet]", out.Bound)
	}
	out = run(t, s, "greet('quire')")
	if out.Rendered != "'hi quire'" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "'hi quire'")
	}
}

func TestClassInstancePreview(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "class Point { constructor(x, y) { this.x = x; this.y = y } }")
	out := run(t, s, "new Point(1, 2)")
	if out.Rendered != "Point { x: 1, y: 2 }" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "Point { x: 1, y: 2 }")
	}
}

func TestDestructuredBindingsPersist(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "const {a, b: renamed} = {a: 1, b: 2}")
	out := run(t, s, "a + renamed")
	if out.Rendered != "3" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "3")
	}
}

func TestConsoleOutputOrder(t *testing.T) {
	s := newTestSession(t)
	var buf Buffer
	_, err := s.Run(context.Background(), "console.log('one'); console.error('two'); console.log('three')", &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	entries := buf.Entries()
	want := []Entry{
		{Stream: StreamStdout, Text: "one\n"},
		{Stream: StreamStderr, Text: "two\n"},
		{Stream: StreamStdout, Text: "three\n"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestConsoleFormatsValues(t *testing.T) {
	s := newTestSession(t)
	var buf Buffer
	_, err := s.Run(context.Background(), "console.log('list:', [1, 2], {a: true})", &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "list: [ 1, 2 ] { a: true }\n"
	if got := buf.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestSinkRestoredAfterRun(t *testing.T) {
	var fallback Buffer
	s, err := New(Options{Name: "test", Sink: &fallback})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var scoped Buffer
	if _, err := s.Run(context.Background(), "console.log('scoped')", &scoped); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := s.Run(context.Background(), "console.log('fallback')", nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := scoped.Text(); got != "scoped\n" {
		t.Errorf("scoped sink = %q, want %q", got, "scoped\n")
	}
	if got := fallback.Text(); got != "fallback\n" {
		t.Errorf("fallback sink = %q, want %q", got, "fallback\n")
	}
}

func TestTopLevelAwait(t *testing.T) {
	s := newTestSession(t)
	out := run(t, s, "await Promise.resolve(7)")
	if !out.Async {
		t.Error("Async = false, want true")
	}
	if out.Rendered != "7" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "7")
	}
}

func TestAwaitBindingPersists(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "const answer = await Promise.resolve(42)")
	out := run(t, s, "answer")
	if out.Rendered != "42" {
		t.Errorf("Rendered = %q, want %q", out.Rendered, "42")
	}
}

func TestAwaitRejection(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Run(context.Background(), "await Promise.reject(new Error('nope'))", nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Run() error = %v, want *EvalError", err)
	}
	if evalErr.Name != "Error" || evalErr.Message != "nope" {
		t.Errorf("error = %s: %s, want Error: nope", evalErr.Name, evalErr.Message)
	}
}

func TestInterrupt(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := s.Run(ctx, "for (;;) {}", nil)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Run() error = %v, want ErrInterrupted", err)
	}
	// The session must stay usable after an interrupt.
	out := run(t, s, "1 + 1")
	if out.Rendered != "2" {
		t.Errorf("Rendered after interrupt = %q, want %q", out.Rendered, "2")
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	s := newTestSession(t)
	out, err := s.RunLanguage(context.Background(), "python", "print(1)", nil)
	if err != nil {
		t.Fatalf("RunLanguage() error = %v", err)
	}
	if out.Kind != OutcomeUnsupported {
		t.Errorf("Kind = %v, want %v", out.Kind, OutcomeUnsupported)
	}
	if out.Language != "python" {
		t.Errorf("Language = %q, want %q", out.Language, "python")
	}
}

func TestThrownError(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Run(context.Background(), "throw new TypeError('bad input')", nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Run() error = %v, want *EvalError", err)
	}
	if evalErr.Name != "TypeError" {
		t.Errorf("Name = %q, want %q", evalErr.Name, "TypeError")
	}
	if evalErr.Message != "bad input" {
		t.Errorf("Message = %q, want %q", evalErr.Message, "bad input")
	}
}

func TestReferenceError(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Run(context.Background(), "definitelyMissing", nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Run() error = %v, want *EvalError", err)
	}
	if evalErr.Name != "ReferenceError" {
		t.Errorf("Name = %q, want %q", evalErr.Name, "ReferenceError")
	}
	if !strings.Contains(evalErr.Message, "not defined") {
		t.Errorf("Message = %q, want it to mention not defined", evalErr.Message)
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Run(context.Background(), "var (", nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Run() error = %v, want *EvalError", err)
	}
	if evalErr.Name != "SyntaxError" {
		t.Errorf("Name = %q, want %q", evalErr.Name, "SyntaxError")
	}
	if evalErr.Line != 1 || evalErr.Column < 1 {
		t.Errorf("position = %d:%d, want line 1 and a positive column", evalErr.Line, evalErr.Column)
	}
}

func TestNamesListsUserGlobals(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var zebra = 1")
	run(t, s, "let apple = 2")
	run(t, s, "globalThis.mango = 3")
	names := s.Names()
	want := []string{"apple", "mango", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestVarsSummaries(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var count = 3")
	run(t, s, "var greet = function () {}")
	vars := s.Vars()
	if len(vars) != 2 {
		t.Fatalf("Vars() len = %d, want 2", len(vars))
	}
	if vars[0].Name != "count" || vars[0].Type != "number" || vars[0].Preview != "3" {
		t.Errorf("Vars()[0] = %+v, want count number 3", vars[0])
	}
	if vars[1].Name != "greet" || vars[1].Type != "function" {
		t.Errorf("Vars()[1] = %+v, want greet function", vars[1])
	}
}

func TestLookupPath(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var o = {inner: {deep: 5}}")
	v, ok := s.Lookup("o.inner.deep")
	if !ok {
		t.Fatal("Lookup(o.inner.deep) not found")
	}
	if got := s.Preview(v); got != "5" {
		t.Errorf("Preview = %q, want %q", got, "5")
	}
	if _, ok := s.Lookup("o.missing.deep"); ok {
		t.Error("Lookup(o.missing.deep) found, want miss")
	}
}

func TestLookupOptionalChaining(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var o = {inner: {deep: 5}}")
	if _, ok := s.Lookup("o?.inner?.deep"); !ok {
		t.Error("Lookup(o?.inner?.deep) not found")
	}
}

func TestCompleteMember(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var box = {alpha: 1, beta: 2}")
	cx, candidates := s.Complete("box.a", 5)
	if cx.ObjectPath != "box" || cx.Prefix != "a" {
		t.Fatalf("context = %+v, want path box prefix a", cx)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %v, want exactly alpha", candidates)
	}
	if candidates[0].Label != "alpha" || candidates[0].Kind != "property" {
		t.Errorf("candidate = %+v, want alpha property", candidates[0])
	}
}

func TestCompleteMethodKind(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var box = {add: function (a, b) { return a + b }}")
	_, candidates := s.Complete("box.ad", 6)
	if len(candidates) != 1 || candidates[0].Kind != "method" {
		t.Fatalf("candidates = %v, want add as method", candidates)
	}
}

func TestCompleteGlobal(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var obelisk = 9")
	_, candidates := s.Complete("obe", 3)
	if len(candidates) != 1 {
		t.Fatalf("candidates = %v, want exactly obelisk", candidates)
	}
	if candidates[0].Label != "obelisk" || candidates[0].Kind != "variable" {
		t.Errorf("candidate = %+v, want obelisk variable", candidates[0])
	}
}

func TestCompleteBuiltinAndKeywordRank(t *testing.T) {
	s := newTestSession(t)
	run(t, s, "var india = 1")
	_, candidates := s.Complete("i", 1)
	if len(candidates) < 3 {
		t.Fatalf("candidates = %v, want user name, builtins and keywords", candidates)
	}
	if candidates[0].Label != "india" {
		t.Errorf("first candidate = %q, want the user name first", candidates[0].Label)
	}
	last := candidates[len(candidates)-1]
	if last.Kind != "keyword" {
		t.Errorf("last candidate kind = %q, want keywords ranked last", last.Kind)
	}
}

func TestCompleteInStringYieldsNothing(t *testing.T) {
	s := newTestSession(t)
	cx, candidates := s.Complete("'hello wor", 10)
	if cx.Kind.String() != "string" {
		t.Errorf("context kind = %v, want string", cx.Kind)
	}
	if candidates != nil {
		t.Errorf("candidates = %v, want none", candidates)
	}
}

func TestClassifyDelegates(t *testing.T) {
	s := newTestSession(t)
	if v := s.Classify("function f() {"); v.Status.String() != "incomplete" {
		t.Errorf("Classify(open function) = %v, want incomplete", v.Status)
	}
	if v := s.Classify("1 + 1"); v.Status.String() != "complete" {
		t.Errorf("Classify(1 + 1) = %v, want complete", v.Status)
	}
}
