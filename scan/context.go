package scan

import "strings"

// ContextKind classifies what kind of completion fits at a cursor.
type ContextKind int

const (
	ContextGlobal ContextKind = iota
	ContextMember
	ContextBracket
	ContextString
	ContextComment
)

func (k ContextKind) String() string {
	switch k {
	case ContextGlobal:
		return "global"
	case ContextMember:
		return "member"
	case ContextBracket:
		return "bracket"
	case ContextString:
		return "string"
	case ContextComment:
		return "comment"
	}
	return "unknown"
}

// Context describes the completion point at a cursor offset. Prefix is the
// identifier text typed before the cursor; Start and End delimit the token
// being completed, with Start <= cursor <= End. For member and bracket
// access ObjectPath holds the expression before the access operator,
// empty when none could be recovered.
type Context struct {
	Kind       ContextKind
	Prefix     string
	ObjectPath string
	Start      int
	End        int
}

// ContextAt resolves the completion context at cursor. Offsets outside the
// text clamp to its ends.
func ContextAt(src string, cursor int) Context {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(src) {
		cursor = len(src)
	}
	return Scan(src).ContextAt(cursor)
}

func (r Result) ContextAt(cursor int) Context {
	src := r.src
	if cursor == 0 {
		return Context{Kind: ContextGlobal, Start: 0, End: 0}
	}

	switch r.At(cursor - 1).Kind {
	case LineComment, BlockComment:
		return Context{Kind: ContextComment, Start: cursor, End: cursor}
	case String, Template, Regex:
		return Context{Kind: ContextString, Start: cursor, End: cursor}
	}

	i := cursor
	for i > 0 && isSpace(src[i-1]) {
		i--
	}
	if i == 0 {
		return Context{Kind: ContextGlobal, Start: cursor, End: cursor}
	}
	// Skipping whitespace may land inside a comment on an earlier line;
	// that is a fresh statement position, not a continuation.
	if reg := r.At(i - 1); reg.Kind == LineComment || reg.Kind == BlockComment {
		return Context{Kind: ContextGlobal, Start: cursor, End: cursor}
	}

	ch := src[i-1]
	switch {
	case ch == '.':
		path := r.pathBefore(i - 1)
		return Context{Kind: ContextMember, ObjectPath: path, Start: cursor, End: cursor}

	case IsIdentPart(ch):
		start := i
		for start > 0 && IsIdentPart(src[start-1]) {
			start--
		}
		prefix := src[start:i]
		end := i
		for end < len(src) && IsIdentPart(src[end]) {
			end++
		}
		if end < cursor {
			end = cursor
		}
		j := start
		for j > 0 && isSpace(src[j-1]) {
			j--
		}
		if j > 0 && src[j-1] == '.' {
			path := r.pathBefore(j - 1)
			return Context{Kind: ContextMember, Prefix: prefix, ObjectPath: path, Start: start, End: end}
		}
		return Context{Kind: ContextGlobal, Prefix: prefix, Start: start, End: end}

	case ch == '[':
		path := r.pathBefore(i - 1)
		return Context{Kind: ContextBracket, ObjectPath: path, Start: cursor, End: cursor}
	}
	return Context{Kind: ContextGlobal, Start: cursor, End: cursor}
}

// pathBefore recovers the object expression ending just before opPos, the
// offset of an access operator. The walk moves left over identifiers,
// dots, optional chains and balanced call or index groups; an unmatched
// opener stops it. Whitespace between path tokens is dropped from the
// returned path, whitespace inside literals is kept.
func (r Result) pathBefore(opPos int) string {
	src := r.src
	// a trailing `?.` is a two-character access operator
	if opPos > 0 && src[opPos] == '.' && src[opPos-1] == '?' {
		opPos--
	}
	i := opPos
	good := opPos // start of the last fully recovered segment chain
	for {
		progressed := false
		// trailing call/index groups of the current segment
		for {
			j := i
			for j > 0 && isSpace(src[j-1]) {
				j--
			}
			if j > 0 && (src[j-1] == ')' || src[j-1] == ']') {
				open := r.matchBackward(j - 1)
				if open < 0 {
					return r.pathSlice(good, opPos)
				}
				i = open
				progressed = true
				continue
			}
			break
		}
		j := i
		for j > 0 && isSpace(src[j-1]) {
			j--
		}
		if j > 0 && IsIdentPart(src[j-1]) && r.At(j-1).Kind == Code {
			for j > 0 && IsIdentPart(src[j-1]) {
				j--
			}
			i = j
			progressed = true
		}
		if !progressed {
			break
		}
		good = i
		// continue across a member dot
		j = i
		for j > 0 && isSpace(src[j-1]) {
			j--
		}
		if j > 0 && src[j-1] == '.' && r.At(j-1).Kind == Code {
			j--
			if j > 0 && src[j-1] == '?' {
				j--
			}
			i = j
			continue
		}
		break
	}
	return r.pathSlice(good, opPos)
}

// matchBackward finds the opener matching the closer at closePos, walking
// only code offsets so brackets inside literals and comments do not
// count. It returns -1 when the closer is unmatched.
func (r Result) matchBackward(closePos int) int {
	close := r.src[closePos]
	var open byte
	if close == ')' {
		open = '('
	} else {
		open = '['
	}
	depth := 1
	i := closePos
	for {
		i = r.prevCode(i)
		if i < 0 {
			return -1
		}
		switch r.src[i] {
		case open:
			depth--
			if depth == 0 {
				return i
			}
		case close:
			depth++
		}
	}
}

// prevCode returns the largest code offset strictly below i, jumping over
// whole regions, or -1 when none remains.
func (r Result) prevCode(i int) int {
	for i > 0 {
		i--
		reg := r.At(i)
		if reg.Kind == Code {
			return i
		}
		i = reg.Start
	}
	return -1
}

// pathSlice extracts src[start:end] with code-region whitespace removed.
func (r Result) pathSlice(start, end int) string {
	if start >= end {
		return ""
	}
	var b strings.Builder
	b.Grow(end - start)
	for i := start; i < end; i++ {
		if isSpace(r.src[i]) && r.At(i).Kind == Code {
			continue
		}
		b.WriteByte(r.src[i])
	}
	return b.String()
}
