package scan

import (
	"strings"
	"testing"
)

func TestRewriteDeclarations(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"const x = 1; let y = 2;", "var x = 1; var y = 2;"},
		{"let a = 1", "var a = 1"},
		{"var x = 1", "var x = 1"},
		{"letter = 5", "letter = 5"},
		{"scarlet = 1", "scarlet = 1"},
		{"constant = 1", "constant = 1"},
		{"'let x' + `const y`", "'let x' + `const y`"},
		{"// let x\nconst y = 1", "// let x\nvar y = 1"},
		{"/* const */ let z = 3", "/* const */ var z = 3"},
		{"x = /let/; const q = 1", "x = /let/; var q = 1"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RewriteDeclarations(tt.input); got != tt.want {
				t.Errorf("RewriteDeclarations = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteIdempotent(t *testing.T) {
	inputs := []string{
		"var x = 1; function f() {}",
		"x + y * 2",
		"const a = `tpl ${b}`",
	}
	for _, src := range inputs {
		once := RewriteDeclarations(src)
		twice := RewriteDeclarations(once)
		if once != twice {
			t.Errorf("rewrite not idempotent: %q -> %q -> %q", src, once, twice)
		}
	}
}

func TestHasTopLevelAwait(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"await f()", true},
		{"var x = await f()", true},
		{"x = await", true},
		{"f(await g())", true},
		{"`${await f()}`", true},
		{"async function g() { await f() }", false},
		{"function g() { return await f() }", false},
		{"'await f()'", false},
		{"// await f()", false},
		{"awaiting = 1", false},
		{"x.await", true}, // word boundary both sides; property position is not special-cased
		{"", false},
		// block braces hide the keyword, same as function bodies
		{"if (x) { await f() }", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := HasTopLevelAwait(tt.input); got != tt.want {
				t.Errorf("HasTopLevelAwait = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapSync(t *testing.T) {
	w := Wrap("1 + 1", nil)
	if w.Async {
		t.Errorf("Async = true, want false")
	}
	if !strings.HasPrefix(w.Source, "(function () {") {
		t.Errorf("Source does not open a plain shell: %q", w.Source)
	}
	if !strings.HasSuffix(w.Source, "}).call(this)") {
		t.Errorf("Source does not invoke the shell: %q", w.Source)
	}
	if !strings.Contains(w.Source, "var __quireResult = (1 + 1") {
		t.Errorf("final expression not captured: %q", w.Source)
	}
	if !strings.Contains(w.Source, "return __quireResult;") {
		t.Errorf("captured result not returned: %q", w.Source)
	}
}

func TestWrapAsync(t *testing.T) {
	w := Wrap("var v = await f()", []string{"v"})
	if !w.Async {
		t.Errorf("Async = false, want true")
	}
	if !strings.HasPrefix(w.Source, "(async function () {") {
		t.Errorf("Source does not open an async shell: %q", w.Source)
	}
	if !strings.Contains(w.Source, "try { this.v = v; } catch (e) {}") {
		t.Errorf("v not republished: %q", w.Source)
	}
}

func TestWrapRebindFilter(t *testing.T) {
	w := Wrap("x", []string{"ok", "bad-name", "let", ""})
	if !strings.Contains(w.Source, "this.ok = ok") {
		t.Errorf("valid name not republished: %q", w.Source)
	}
	for _, bad := range []string{"bad-name", "this.let"} {
		if strings.Contains(w.Source, bad) {
			t.Errorf("unsafe rebind %q made it into the shell: %q", bad, w.Source)
		}
	}
}

func TestWrapResultInjection(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		captured string // empty means no capture expected
	}{
		{"lone expression", "2 * 21", "2 * 21"},
		{"after declaration", "var x = 1\nx + 1", "x + 1"},
		{"after statement", "f();\ng()", "g()"},
		{"multiline expression", "f(1,\n2)", "f(1,\n2)"},
		{"object literal", "({a: 1})", "({a: 1})"},
		{"declaration only", "var x = 1", ""},
		{"function declaration", "function f() {}", ""},
		{"trailing semicolons", "1 + 1;;", "1 + 1"},
		{"blank", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Wrap(tt.input, nil)
			if tt.captured == "" {
				if strings.Contains(w.Source, resultName) {
					t.Errorf("unexpected result capture in %q", w.Source)
				}
				return
			}
			if !strings.Contains(w.Source, "var "+resultName+" = ("+tt.captured) {
				t.Errorf("Source = %q, want capture of %q", w.Source, tt.captured)
			}
		})
	}
}
