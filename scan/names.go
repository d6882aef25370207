package scan

import "strings"

// DeclaredNames returns the names bound by the snippet's outermost
// declarations: var/let/const declarator lists with full destructuring,
// plus named function and class declarations. Bodies of nested functions
// and classes are skipped wholesale, so their locals never leak into the
// set. Block-scoped positions are walked into, matching the flat session
// namespace the rewriter produces.
func DeclaredNames(src string) []string {
	return Scan(src).DeclaredNames()
}

func (r Result) DeclaredNames() []string {
	w := nameWalker{src: r.Strip(), seen: map[string]bool{}}
	w.run()
	return w.names
}

type nameWalker struct {
	src   string
	pos   int
	names []string
	seen  map[string]bool

	// lastSig is the previous significant character; newlineBefore is set
	// when a line break separates it from the current position. Together
	// they decide whether a function or class keyword sits in statement
	// position (a declaration) or inside an expression.
	lastSig       byte
	newlineBefore bool
}

func (w *nameWalker) run() {
	for w.pos < len(w.src) {
		ch := w.src[w.pos]
		switch {
		case ch == '\n':
			w.newlineBefore = true
			w.pos++
		case isSpace(ch):
			w.pos++
		case ch == '=' && w.at(w.pos+1) == '>':
			w.pos += 2
			w.skipWS()
			if w.at(w.pos) == '{' {
				w.takeBalanced()
				w.setSig('}')
			} else {
				w.setSig('>')
			}
		case IsIdentStart(ch) && (w.pos == 0 || !IsIdentPart(w.src[w.pos-1])):
			w.keyword()
		default:
			w.setSig(ch)
			w.pos++
		}
	}
}

func (w *nameWalker) keyword() {
	decl := w.atStatementStart()
	word := w.readWord()
	switch word {
	case "var", "let", "const":
		w.setSig('r')
		w.declarators()
	case "function":
		w.function(decl)
		w.setSig('}')
	case "class":
		w.class(decl)
		w.setSig('}')
	case "async":
		save := w.pos
		w.skipWS()
		if IsIdentStart(w.at(w.pos)) {
			next := w.readWord()
			if next == "function" {
				w.function(decl)
				w.setSig('}')
				return
			}
		}
		w.pos = save
		w.setSig('c')
	default:
		w.setSig(word[len(word)-1])
	}
}

func (w *nameWalker) atStatementStart() bool {
	if w.newlineBefore {
		return true
	}
	switch w.lastSig {
	case 0, ';', '{', '}':
		return true
	}
	return false
}

// declarators consumes the list after a var/let/const keyword: patterns or
// bare names, optional initializers, comma-joined. Initializers are
// skipped blindly; a var cannot occur inside an expression outside some
// function body, and those bodies are balanced spans the skip jumps over.
func (w *nameWalker) declarators() {
	for {
		w.skipWS()
		if w.pos >= len(w.src) {
			return
		}
		ch := w.src[w.pos]
		if ch == '{' || ch == '[' {
			w.destructure(w.takeBalanced())
		} else if IsIdentStart(ch) {
			w.add(w.readWord())
		} else {
			return
		}
		w.skipWS()
		if w.at(w.pos) == '=' && w.at(w.pos+1) != '=' && w.at(w.pos+1) != '>' {
			w.pos++
			if !w.skipInitializer() {
				return
			}
		}
		if w.at(w.pos) == ',' {
			w.pos++
			continue
		}
		return
	}
}

// skipInitializer consumes an initializer expression. It reports true when
// it stopped at a top-level comma, meaning the declarator list continues.
// A newline at depth zero ends the declaration unless the next significant
// character is a comma (leading-comma declarator style).
func (w *nameWalker) skipInitializer() bool {
	depth := 0
	for w.pos < len(w.src) {
		ch := w.src[w.pos]
		switch ch {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return false
			}
			depth--
		case ',':
			if depth == 0 {
				return true
			}
		case ';':
			if depth == 0 {
				return false
			}
		case '\n':
			if depth == 0 {
				j := w.pos
				for j < len(w.src) && isSpace(w.src[j]) {
					j++
				}
				if j < len(w.src) && w.src[j] == ',' {
					w.pos = j
					return true
				}
				return false
			}
		}
		w.pos++
	}
	return false
}

// destructure expands one binding pattern, including its delimiters, into
// flat names: rest elements, renamed and computed properties, defaults,
// nested object and array patterns, and elisions.
func (w *nameWalker) destructure(pat string) {
	if len(pat) < 2 {
		return
	}
	isObj := pat[0] == '{'
	inner := pat[1 : len(pat)-1]
	for _, part := range splitTop(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "...") {
			w.bindTarget(strings.TrimSpace(part[3:]))
			continue
		}
		if eq := indexTopEq(part); eq >= 0 {
			part = strings.TrimSpace(part[:eq])
		}
		if isObj {
			if colon := indexTop(part, ':'); colon >= 0 {
				w.bindTarget(strings.TrimSpace(part[colon+1:]))
				continue
			}
		}
		w.bindTarget(part)
	}
}

// bindTarget adds a bare name or recurses into a nested pattern.
func (w *nameWalker) bindTarget(target string) {
	if target == "" {
		return
	}
	if target[0] == '{' || target[0] == '[' {
		w.destructure(target)
		return
	}
	w.addIdent(target)
}

func (w *nameWalker) function(decl bool) {
	w.skipWS()
	if w.at(w.pos) == '*' {
		w.pos++
		w.skipWS()
	}
	if IsIdentStart(w.at(w.pos)) {
		name := w.readWord()
		if decl {
			w.add(name)
		}
		w.skipWS()
	}
	if w.at(w.pos) == '(' {
		w.takeBalanced()
		w.skipWS()
	}
	if w.at(w.pos) == '{' {
		w.takeBalanced()
	}
}

func (w *nameWalker) class(decl bool) {
	w.skipWS()
	if IsIdentStart(w.at(w.pos)) {
		name := w.readWord()
		if decl {
			w.add(name)
		}
	}
	for w.pos < len(w.src) && w.src[w.pos] != '{' {
		if w.src[w.pos] == '(' {
			w.takeBalanced()
		} else {
			w.pos++
		}
	}
	if w.at(w.pos) == '{' {
		w.takeBalanced()
	}
}

// takeBalanced consumes a bracketed span starting at the current position
// and returns it, delimiters included. Only the opener's own bracket type
// is counted; literal text is already blank in the stripped source.
func (w *nameWalker) takeBalanced() string {
	open := w.src[w.pos]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	case '(':
		close = ')'
	default:
		return ""
	}
	start := w.pos
	depth := 0
	for w.pos < len(w.src) {
		switch w.src[w.pos] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				w.pos++
				return w.src[start:w.pos]
			}
		}
		w.pos++
	}
	return w.src[start:w.pos]
}

func (w *nameWalker) readWord() string {
	start := w.pos
	for w.pos < len(w.src) && IsIdentPart(w.src[w.pos]) {
		w.pos++
	}
	return w.src[start:w.pos]
}

func (w *nameWalker) skipWS() {
	for w.pos < len(w.src) && isSpace(w.src[w.pos]) {
		w.pos++
	}
}

func (w *nameWalker) at(pos int) byte {
	if pos < 0 || pos >= len(w.src) {
		return 0
	}
	return w.src[pos]
}

func (w *nameWalker) setSig(ch byte) {
	w.lastSig = ch
	w.newlineBefore = false
}

func (w *nameWalker) addIdent(s string) {
	s = strings.TrimSpace(s)
	if !validIdent(s) {
		return
	}
	w.add(s)
}

func (w *nameWalker) add(name string) {
	if name == "" || IsReservedWord(name) || w.seen[name] {
		return
	}
	w.seen[name] = true
	w.names = append(w.names, name)
}

// splitTop splits s on sep at zero bracket depth.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// indexTop returns the first zero-depth occurrence of sep in s, or -1.
func indexTop(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// indexTopEq returns the first zero-depth bare `=` in s, skipping the
// compound forms (==, =>, <=, >=, !=), or -1.
func indexTopEq(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && (s[i+1] == '=' || s[i+1] == '>') {
				i++
				continue
			}
			if i > 0 && strings.IndexByte("=!<>", s[i-1]) >= 0 {
				continue
			}
			return i
		}
	}
	return -1
}
