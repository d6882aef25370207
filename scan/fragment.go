package scan

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// Status labels how ready a fragment is for execution.
type Status int

const (
	Complete Status = iota
	Incomplete
	Invalid
	Unknown
)

func (s Status) String() string {
	switch s {
	case Complete:
		return "complete"
	case Incomplete:
		return "incomplete"
	case Invalid:
		return "invalid"
	case Unknown:
		return "unknown"
	}
	return "unknown"
}

// Verdict is a completeness classification plus the whitespace to prefix
// to the next line when more input is expected.
type Verdict struct {
	Status Status
	Indent string
}

const indentUnit = "  "

// continuationErr matches compile errors that mean "keep typing" rather
// than "this can never parse". The word boundary keeps "Unexpected token"
// from matching the bare "expected".
var continuationErr = regexp.MustCompile(`(?i)unexpected end|unterminated|missing|\bexpected\b`)

// continuationWords cannot end a statement; a line ending on one means
// more input is coming.
var continuationWords = map[string]bool{
	"async": true, "await": true, "case": true, "catch": true,
	"class": true, "const": true, "delete": true, "do": true,
	"else": true, "extends": true, "finally": true, "for": true,
	"function": true, "if": true, "in": true, "instanceof": true,
	"let": true, "new": true, "of": true, "return": true,
	"switch": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "yield": true,
}

// Classify decides whether src is a complete statement, needs more input,
// or cannot become valid. Balance checks run on region-stripped text so
// brackets inside literals and comments never count; a trial compile with
// the engine settles what the heuristics cannot.
func Classify(src string) Verdict {
	return Scan(src).Classify()
}

func (r Result) Classify() Verdict {
	src := r.src
	if strings.TrimSpace(src) == "" {
		return Verdict{Status: Complete}
	}
	stripped := r.Strip()

	var stack []byte
	for i := 0; i < len(stripped); i++ {
		switch ch := stripped[i]; ch {
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != matchingOpen(ch) {
				return Verdict{Status: Invalid}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return Verdict{Status: Incomplete, Indent: r.indentHint()}
	}

	if r.OpenKind != Code {
		return Verdict{Status: Incomplete, Indent: r.indentHint()}
	}

	if r.endsMidStatement() {
		return Verdict{Status: Incomplete, Indent: r.indentHint()}
	}

	if r.OpenHoles > 0 {
		return Verdict{Status: Incomplete, Indent: r.indentHint()}
	}

	// Trial compile: build a callable from the text without invoking it.
	// The shell matches the one execution uses, so the classifier and the
	// runner agree on what parses.
	shell := "(function () {\n" + src + "\n})"
	if r.HasTopLevelAwait() {
		shell = "(async function () {\n" + src + "\n})"
	}
	_, err := goja.Compile("fragment", shell, false)
	if err == nil {
		return Verdict{Status: Complete}
	}
	var syntaxErr *goja.CompilerSyntaxError
	if !errors.As(err, &syntaxErr) {
		return Verdict{Status: Unknown}
	}
	if continuationErr.MatchString(err.Error()) {
		return Verdict{Status: Incomplete, Indent: r.indentHint()}
	}
	return Verdict{Status: Invalid}
}

func matchingOpen(close byte) byte {
	switch close {
	case ')':
		return '('
	case ']':
		return '['
	}
	return '{'
}

// endsMidStatement reports whether the last non-blank, non-comment line
// ends on a binary or assignment operator or a continuation keyword.
// Comments are blanked but literal text is kept, so a line ending in a
// closed string does not look operator-terminated.
func (r Result) endsMidStatement() bool {
	// StripComments preserves length, so offsets into the blanked text
	// index the original regions.
	stripped := r.StripComments()
	end := len(stripped)
	for end > 0 && isSpace(stripped[end-1]) {
		end--
	}
	if end == 0 {
		return false
	}
	// A statement may end in a closed literal; /re/ would otherwise read
	// as a trailing divide.
	if r.At(end-1).Kind != Code {
		return false
	}
	lineStart := strings.LastIndexByte(stripped[:end], '\n') + 1
	last := stripped[lineStart:end]
	if strings.HasSuffix(last, "++") || strings.HasSuffix(last, "--") {
		return false
	}
	if strings.HasSuffix(last, "=>") {
		return true
	}
	if strings.IndexByte("+-*/%&|^<>=?:,.!~", last[len(last)-1]) >= 0 {
		return true
	}
	j := len(last)
	for j > 0 && IsIdentPart(last[j-1]) {
		j--
	}
	word := last[j:]
	if word == "" || (j > 0 && last[j-1] == '.') {
		return false
	}
	return continuationWords[word]
}

// indentHint suggests leading whitespace for the next input line: the
// current last line's indent, one unit deeper when that line ends on an
// opener.
func (r Result) indentHint() string {
	line := lastContentLine(r.StripComments())
	if line == "" {
		return ""
	}
	indent := ""
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			indent = line[:i]
			break
		}
	}
	switch line[len(line)-1] {
	case '{', '[', '(', ':':
		return indent + indentUnit
	}
	if strings.HasSuffix(line, "=>") {
		return indent + indentUnit
	}
	return indent
}

// lastContentLine returns the last line with non-whitespace content,
// right-trimmed.
func lastContentLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], " \t\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
