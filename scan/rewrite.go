package scan

import (
	"strings"

	"github.com/dop251/goja/parser"
)

// RewriteDeclarations replaces let and const keywords with var so the
// bindings land on the session namespace instead of a block scope that
// dies with the snippet. A match must sit in a code region with identifier
// boundaries on both sides; literal and comment text passes through
// untouched, as does everything else, byte for byte.
func RewriteDeclarations(src string) string {
	return Scan(src).RewriteDeclarations()
}

func (r Result) RewriteDeclarations() string {
	var b strings.Builder
	b.Grow(len(r.src))
	pos := 0
	for _, reg := range r.Regions {
		r.rewriteCode(&b, pos, reg.Start)
		b.WriteString(r.src[reg.Start:reg.End])
		pos = reg.End
	}
	r.rewriteCode(&b, pos, len(r.src))
	return b.String()
}

func (r Result) rewriteCode(b *strings.Builder, start, end int) {
	src := r.src
	i := start
	for i < end {
		ch := src[i]
		if !IsIdentStart(ch) || (i > 0 && IsIdentPart(src[i-1])) {
			b.WriteByte(ch)
			i++
			continue
		}
		j := i
		for j < end && IsIdentPart(src[j]) {
			j++
		}
		word := src[i:j]
		if (j >= len(src) || !IsIdentPart(src[j])) && (word == "let" || word == "const") {
			b.WriteString("var")
		} else {
			b.WriteString(word)
		}
		i = j
	}
}

// HasTopLevelAwait reports whether src contains an await keyword outside
// every brace pair, scanning region-stripped text. Function bodies need
// braces, so depth zero approximates "outside any nested closure". A
// braceless async arrow body is a known false positive, as is an await
// that could not actually parse at top level; callers treat either as a
// request for the suspension-capable shell.
func HasTopLevelAwait(src string) bool {
	return Scan(src).HasTopLevelAwait()
}

func (r Result) HasTopLevelAwait() bool {
	stripped := r.Strip()
	depth := 0
	i := 0
	for i < len(stripped) {
		ch := stripped[i]
		switch {
		case ch == '{':
			depth++
			i++
		case ch == '}':
			if depth > 0 {
				depth--
			}
			i++
		case IsIdentStart(ch) && (i == 0 || !IsIdentPart(stripped[i-1])):
			j := i
			for j < len(stripped) && IsIdentPart(stripped[j]) {
				j++
			}
			if depth == 0 && stripped[i:j] == "await" {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

// WrapResult is a snippet packaged into an invocation shell.
type WrapResult struct {
	Source string
	Async  bool
}

// resultName is the shell-local binding that captures the value of the
// snippet's final expression before any names are republished.
const resultName = "__quireResult"

// Wrap encloses the source in an immediately invoked shell: async when
// top-level await is present, plain otherwise. The shell keeps the
// snippet's var declarations off the enclosing scope, so every name in
// rebind is republished onto the session namespace (the `this` of a
// sloppy-mode call) before the shell returns. When the final statement is
// an expression its value is captured first and returned, so the shell
// yields the snippet's result.
func Wrap(src string, rebind []string) WrapResult {
	return Scan(src).Wrap(rebind)
}

func (r Result) Wrap(rebind []string) WrapResult {
	async := r.HasTopLevelAwait()
	body, hasResult := r.injectResult()

	var b strings.Builder
	b.Grow(len(body) + 64 + 40*len(rebind))
	if async {
		b.WriteString("(async function () {\n")
	} else {
		b.WriteString("(function () {\n")
	}
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	for _, name := range rebind {
		if !validIdent(name) || IsReservedWord(name) {
			continue
		}
		// A try guards against names the extractor over-collected; a
		// binding that never materialized must not abort the republish of
		// the ones that did.
		b.WriteString("try { this.")
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(name)
		b.WriteString("; } catch (e) {}\n")
	}
	if hasResult {
		b.WriteString("return ")
		b.WriteString(resultName)
		b.WriteString(";\n")
	}
	b.WriteString("}).call(this)")
	return WrapResult{Source: b.String(), Async: async}
}

// injectResult rewrites the final top-level expression statement, if one
// exists, into a capture of its value. Candidate statement boundaries are
// found on stripped text; the earliest boundary whose tail parses as a
// single expression wins, which keeps multi-line expressions intact.
func (r Result) injectResult() (string, bool) {
	src := r.src
	stripped := r.Strip()

	// End of the would-be expression: ignore trailing whitespace and
	// semicolons (comments are already blank in the stripped text).
	end := len(stripped)
	for end > 0 && (isSpace(stripped[end-1]) || stripped[end-1] == ';') {
		end--
	}
	if end == 0 {
		return src, false
	}

	for _, start := range statementStarts(stripped, end) {
		exprStart := start
		for exprStart < end && isSpace(stripped[exprStart]) {
			exprStart++
		}
		if exprStart >= end {
			continue
		}
		if startsWithDeclaration(stripped[exprStart:end]) {
			continue
		}
		expr := src[exprStart:end]
		if !parsesAsExpression(expr) {
			continue
		}
		var b strings.Builder
		b.Grow(len(src) + len(resultName) + 16)
		b.WriteString(src[:exprStart])
		b.WriteString("var ")
		b.WriteString(resultName)
		b.WriteString(" = (")
		b.WriteString(expr)
		b.WriteString("\n)")
		b.WriteString(src[end:])
		return b.String(), true
	}
	return src, false
}

// statementStarts lists candidate offsets where the final statement could
// begin: the start of text plus the position after every top-level `;`,
// `}` or newline, in order.
func statementStarts(stripped string, end int) []int {
	starts := []int{0}
	depth := 0
	for i := 0; i < end; i++ {
		switch stripped[i] {
		case '(', '[', '{':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				starts = append(starts, i+1)
			}
		case ';', '\n':
			if depth == 0 {
				starts = append(starts, i+1)
			}
		}
	}
	return starts
}

// declarationWords open statements that bind names; capturing one as an
// expression would erase the declaration, so such tails are never the
// snippet's result.
var declarationWords = map[string]bool{
	"var": true, "let": true, "const": true,
	"function": true, "class": true, "async": true,
	"import": true, "export": true,
}

func startsWithDeclaration(s string) bool {
	j := 0
	for j < len(s) && IsIdentPart(s[j]) {
		j++
	}
	return declarationWords[s[:j]]
}

func parsesAsExpression(src string) bool {
	_, err := parser.ParseFile(nil, "", "("+src+"\n)", 0)
	return err == nil
}

func validIdent(name string) bool {
	if name == "" || !IsIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !IsIdentPart(name[i]) {
			return false
		}
	}
	return true
}
