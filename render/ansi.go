// Package render turns execution results and terminal-style output into
// forms the browser and the REPL can display.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// ansiStyle is the SGR state accumulated while walking a string. The zero
// value renders as plain text.
type ansiStyle struct {
	bold      bool
	dim       bool
	italic    bool
	underline bool
	fg        string
	bg        string
}

func (s ansiStyle) plain() bool {
	return s == ansiStyle{}
}

func (s ansiStyle) css() string {
	var rules []string
	if s.bold {
		rules = append(rules, "font-weight:bold")
	}
	if s.dim {
		rules = append(rules, "opacity:0.7")
	}
	if s.italic {
		rules = append(rules, "font-style:italic")
	}
	if s.underline {
		rules = append(rules, "text-decoration:underline")
	}
	if s.fg != "" {
		rules = append(rules, "color:"+s.fg)
	}
	if s.bg != "" {
		rules = append(rules, "background-color:"+s.bg)
	}
	return strings.Join(rules, ";")
}

// basicPalette maps the 16 base terminal colors to hex values.
var basicPalette = [16]string{
	"#000000", "#cd3131", "#0dbc79", "#e5e510",
	"#2472c8", "#bc3fbc", "#11a8cd", "#e5e5e5",
	"#666666", "#f14c4c", "#23d18b", "#f5f543",
	"#3b8eea", "#d670d6", "#29b8db", "#ffffff",
}

// cubeLevels are the six channel values of the 256-color cube.
var cubeLevels = [6]int{0, 95, 135, 175, 215, 255}

func color256(n int) string {
	switch {
	case n < 0 || n > 255:
		return ""
	case n < 16:
		return basicPalette[n]
	case n < 232:
		n -= 16
		r := cubeLevels[n/36]
		g := cubeLevels[(n/6)%6]
		b := cubeLevels[n%6]
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	default:
		v := 8 + 10*(n-232)
		return fmt.Sprintf("#%02x%02x%02x", v, v, v)
	}
}

// ANSIToHTML converts SGR-styled text into HTML with inline-styled spans.
// Text is HTML-escaped; SGR codes the converter does not understand are
// dropped, as are non-SGR escape sequences, so arbitrary terminal output
// degrades to its plain text.
func ANSIToHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)

	var style ansiStyle
	var run strings.Builder

	flush := func() {
		if run.Len() == 0 {
			return
		}
		text := html.EscapeString(run.String())
		run.Reset()
		if style.plain() {
			b.WriteString(text)
			return
		}
		b.WriteString(`<span style="`)
		b.WriteString(style.css())
		b.WriteString(`">`)
		b.WriteString(text)
		b.WriteString(`</span>`)
	}

	i := 0
	for i < len(s) {
		ch := s[i]
		if ch != 0x1b {
			run.WriteByte(ch)
			i++
			continue
		}
		seq, params, isSGR := parseEscape(s[i:])
		if isSGR {
			flush()
			style = applySGR(style, params)
		}
		i += seq
	}
	flush()
	return b.String()
}

// StripANSI removes all escape sequences, keeping the plain text.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] != 0x1b {
			b.WriteByte(s[i])
			i++
			continue
		}
		seq, _, _ := parseEscape(s[i:])
		i += seq
	}
	return b.String()
}

// parseEscape measures the escape sequence starting at s[0] (an ESC byte)
// and, for SGR sequences, returns the parameter list. The returned length
// is always at least 1 so callers make progress on malformed input.
func parseEscape(s string) (length int, params []int, isSGR bool) {
	if len(s) < 2 {
		return len(s), nil, false
	}
	switch s[1] {
	case '[':
		j := 2
		for j < len(s) {
			ch := s[j]
			if ch >= 0x40 && ch <= 0x7e {
				if ch == 'm' {
					return j + 1, parseSGRParams(s[2:j]), true
				}
				return j + 1, nil, false
			}
			j++
		}
		return len(s), nil, false
	case ']':
		// OSC: terminated by BEL or ESC backslash.
		j := 2
		for j < len(s) {
			if s[j] == 0x07 {
				return j + 1, nil, false
			}
			if s[j] == 0x1b && j+1 < len(s) && s[j+1] == '\\' {
				return j + 2, nil, false
			}
			j++
		}
		return len(s), nil, false
	default:
		return 2, nil, false
	}
}

func parseSGRParams(raw string) []int {
	if raw == "" {
		return []int{0}
	}
	parts := strings.Split(raw, ";")
	params := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			params = append(params, 0)
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		params = append(params, n)
	}
	return params
}

func applySGR(style ansiStyle, params []int) ansiStyle {
	i := 0
	for i < len(params) {
		p := params[i]
		switch {
		case p == 0:
			style = ansiStyle{}
		case p == 1:
			style.bold = true
		case p == 2:
			style.dim = true
		case p == 3:
			style.italic = true
		case p == 4:
			style.underline = true
		case p == 22:
			style.bold = false
			style.dim = false
		case p == 23:
			style.italic = false
		case p == 24:
			style.underline = false
		case p >= 30 && p <= 37:
			style.fg = basicPalette[p-30]
		case p == 38 || p == 48:
			color, consumed := extendedColor(params[i:])
			if consumed == 0 {
				return style
			}
			if p == 38 {
				style.fg = color
			} else {
				style.bg = color
			}
			i += consumed - 1
		case p == 39:
			style.fg = ""
		case p >= 40 && p <= 47:
			style.bg = basicPalette[p-40]
		case p == 49:
			style.bg = ""
		case p >= 90 && p <= 97:
			style.fg = basicPalette[p-90+8]
		case p >= 100 && p <= 107:
			style.bg = basicPalette[p-100+8]
		}
		i++
	}
	return style
}

// extendedColor decodes a 38/48-prefixed color: `5;n` indexes the 256
// palette, `2;r;g;b` is a direct color. It reports how many parameters the
// sequence consumed, zero when malformed.
func extendedColor(params []int) (string, int) {
	if len(params) >= 3 && params[1] == 5 {
		return color256(params[2]), 3
	}
	if len(params) >= 5 && params[1] == 2 {
		clamp := func(v int) int {
			if v < 0 {
				return 0
			}
			if v > 255 {
				return 255
			}
			return v
		}
		return fmt.Sprintf("#%02x%02x%02x", clamp(params[2]), clamp(params[3]), clamp(params[4])), 5
	}
	return "", 0
}
