package scan

// RegionKind classifies a span of source text.
type RegionKind int

const (
	Code RegionKind = iota
	LineComment
	BlockComment
	String
	Template
	Regex
)

func (k RegionKind) String() string {
	switch k {
	case Code:
		return "code"
	case LineComment:
		return "line-comment"
	case BlockComment:
		return "block-comment"
	case String:
		return "string"
	case Template:
		return "template"
	case Regex:
		return "regex"
	}
	return "unknown"
}

// Region is a classified span of source text. Start is inclusive, End
// exclusive. Open marks a region whose terminator was not reached. For
// String regions Quote holds the opening quote character.
//
// A template with holes contributes one region per text segment: the `${`
// and `}` hole delimiters belong to the segments, while the hole interior
// is code and may contain nested regions of its own.
type Region struct {
	Kind  RegionKind
	Start int
	End   int
	Quote byte
	Open  bool
}

// Result holds the outcome of one left-to-right scan of a source string.
// The zero value is a scan of the empty string.
type Result struct {
	src string

	// Regions lists every non-code span in order. Offsets not covered by
	// any region are plain code.
	Regions []Region

	// OpenKind is the kind of the unterminated region still running at end
	// of input, or Code when the scan ended in plain code.
	OpenKind RegionKind

	// OpenHoles counts template holes whose closing brace was not reached.
	OpenHoles int
}

// Scan walks src once and classifies every string, template, regex and
// comment span. It never fails: unterminated regions are reported open.
func Scan(src string) Result {
	s := scanner{src: src}
	s.run()
	open := Code
	if n := len(s.regions); n > 0 {
		last := s.regions[n-1]
		if last.Open && last.End == len(src) {
			open = last.Kind
		}
	}
	return Result{
		src:       src,
		Regions:   s.regions,
		OpenKind:  open,
		OpenHoles: len(s.holes),
	}
}

// RegionAt reports the region containing offset in src. Offsets outside
// [0, len(src)] clamp to the nearest end; an open region at end of input
// also claims the offset just past its last character.
func RegionAt(src string, offset int) Region {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	return Scan(src).At(offset)
}

// Source returns the text the scan walked.
func (r Result) Source() string {
	return r.src
}

// At returns the region containing offset, or a Code region spanning the
// unclassified gap around it.
func (r Result) At(offset int) Region {
	regions := r.Regions
	lo, hi := 0, len(regions)
	for lo < hi {
		mid := (lo + hi) / 2
		if regions[mid].End <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(regions) && regions[lo].Start <= offset {
		return regions[lo]
	}
	if lo > 0 {
		prev := regions[lo-1]
		if prev.Open && prev.End == offset && offset == len(r.src) {
			return prev
		}
	}
	start, end := 0, len(r.src)
	if lo > 0 {
		start = regions[lo-1].End
	}
	if lo < len(regions) {
		end = regions[lo].Start
	}
	return Region{Kind: Code, Start: start, End: end}
}

// Strip returns the source with every region blanked to spaces, keeping
// newlines so line structure survives. Template hole interiors are code
// and stay intact; the hole delimiters are blanked with their segments, so
// brace counting over stripped text stays balanced.
func (r Result) Strip() string {
	return r.strip(false)
}

// StripComments blanks only comment regions, leaving literal text intact.
func (r Result) StripComments() string {
	return r.strip(true)
}

func (r Result) strip(commentsOnly bool) string {
	if len(r.Regions) == 0 {
		return r.src
	}
	buf := []byte(r.src)
	for _, reg := range r.Regions {
		if commentsOnly && reg.Kind != LineComment && reg.Kind != BlockComment {
			continue
		}
		for i := reg.Start; i < reg.End; i++ {
			if buf[i] != '\n' {
				buf[i] = ' '
			}
		}
	}
	return string(buf)
}

// Strip scans src and blanks every literal and comment region.
func Strip(src string) string {
	return Scan(src).Strip()
}

type scanner struct {
	src     string
	pos     int
	regions []Region

	// holes holds the brace depth of each open template hole, innermost
	// last. Entering `${` pushes a depth of zero; the matching `}` pops it
	// and resumes template text.
	holes []int

	// afterValue is true when the nearest preceding significant character
	// could end a value, which makes a following slash a divide operator
	// instead of a regex start. Comments and whitespace leave it untouched.
	afterValue bool
}

func (s *scanner) peek(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		switch {
		case ch == '/' && s.peek(1) == '/':
			s.scanLineComment()
		case ch == '/' && s.peek(1) == '*':
			s.scanBlockComment()
		case ch == '\'' || ch == '"':
			s.scanString(ch)
		case ch == '`':
			s.scanTemplate(s.pos)
		case ch == '/' && !s.afterValue:
			s.scanRegex()
		case ch == '{':
			if n := len(s.holes); n > 0 {
				s.holes[n-1]++
			}
			s.afterValue = false
			s.pos++
		case ch == '}' && len(s.holes) > 0:
			n := len(s.holes)
			if s.holes[n-1] == 0 {
				s.holes = s.holes[:n-1]
				s.scanTemplate(s.pos)
			} else {
				s.holes[n-1]--
				s.afterValue = false
				s.pos++
			}
		default:
			if !isSpace(ch) {
				s.afterValue = IsIdentPart(ch) || ch == ')' || ch == ']'
			}
			s.pos++
		}
	}
}

func (s *scanner) scanLineComment() {
	start := s.pos
	s.pos += 2
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
	s.regions = append(s.regions, Region{Kind: LineComment, Start: start, End: s.pos})
}

func (s *scanner) scanBlockComment() {
	start := s.pos
	s.pos += 2
	closed := false
	for s.pos < len(s.src) {
		if s.src[s.pos] == '*' && s.peek(1) == '/' {
			s.pos += 2
			closed = true
			break
		}
		s.pos++
	}
	s.regions = append(s.regions, Region{Kind: BlockComment, Start: start, End: s.pos, Open: !closed})
}

func (s *scanner) scanString(quote byte) {
	start := s.pos
	s.pos++
	closed := false
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch == '\\' {
			s.pos += 2
			continue
		}
		if ch == quote {
			s.pos++
			closed = true
			break
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
	s.regions = append(s.regions, Region{Kind: String, Start: start, End: s.pos, Quote: quote, Open: !closed})
	s.afterValue = closed
}

// scanTemplate consumes one template text segment starting at segStart,
// which is either the opening backtick or the `}` that closed a hole. The
// segment ends at the closing backtick, at the `${` that opens the next
// hole, or at end of input.
func (s *scanner) scanTemplate(segStart int) {
	s.pos = segStart + 1
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch == '\\' {
			s.pos += 2
			continue
		}
		if ch == '`' {
			s.pos++
			s.regions = append(s.regions, Region{Kind: Template, Start: segStart, End: s.pos})
			s.afterValue = true
			return
		}
		if ch == '$' && s.peek(1) == '{' {
			s.pos += 2
			s.regions = append(s.regions, Region{Kind: Template, Start: segStart, End: s.pos})
			s.holes = append(s.holes, 0)
			s.afterValue = false
			return
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
	s.regions = append(s.regions, Region{Kind: Template, Start: segStart, End: s.pos, Open: true})
}

func (s *scanner) scanRegex() {
	start := s.pos
	s.pos++
	closed := false
	inClass := false
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch == '\\' {
			s.pos += 2
			continue
		}
		// A regex literal cannot span lines; ending here contains the
		// damage when the divide heuristic guessed wrong.
		if ch == '\n' {
			break
		}
		if ch == '[' {
			inClass = true
		} else if ch == ']' {
			inClass = false
		} else if ch == '/' && !inClass {
			s.pos++
			closed = true
			break
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
	if closed {
		for s.pos < len(s.src) && IsIdentPart(s.src[s.pos]) {
			s.pos++
		}
	}
	s.regions = append(s.regions, Region{Kind: Regex, Start: start, End: s.pos, Open: !closed})
	s.afterValue = closed
}
