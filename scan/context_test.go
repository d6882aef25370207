package scan

import "testing"

func TestContextAtMember(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		cursor int
		want   Context
	}{
		{
			"after dot",
			"foo.bar.", 8,
			Context{Kind: ContextMember, ObjectPath: "foo.bar", Start: 8, End: 8},
		},
		{
			"partial member",
			"foo.ba", 6,
			Context{Kind: ContextMember, Prefix: "ba", ObjectPath: "foo", Start: 4, End: 6},
		},
		{
			"optional chain",
			"user?.na", 8,
			Context{Kind: ContextMember, Prefix: "na", ObjectPath: "user", Start: 6, End: 8},
		},
		{
			"call result",
			"f(x).y", 6,
			Context{Kind: ContextMember, Prefix: "y", ObjectPath: "f(x)", Start: 5, End: 6},
		},
		{
			"index result",
			"rows[0].le", 10,
			Context{Kind: ContextMember, Prefix: "le", ObjectPath: "rows[0]", Start: 8, End: 10},
		},
		{
			"unmatched closer stops the path",
			").", 2,
			Context{Kind: ContextMember, ObjectPath: "", Start: 2, End: 2},
		},
		{
			"cursor inside identifier",
			"foo.bar", 5,
			Context{Kind: ContextMember, Prefix: "b", ObjectPath: "foo", Start: 4, End: 7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContextAt(tt.src, tt.cursor)
			if got != tt.want {
				t.Errorf("ContextAt(%q, %d) = %+v, want %+v", tt.src, tt.cursor, got, tt.want)
			}
		})
	}
}

func TestContextAtGlobal(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		cursor int
		want   Context
	}{
		{"empty input", "", 0, Context{Kind: ContextGlobal}},
		{"bare prefix", "con", 3, Context{Kind: ContextGlobal, Prefix: "con", Start: 0, End: 3}},
		{
			"second statement",
			"a;\nco", 5,
			Context{Kind: ContextGlobal, Prefix: "co", Start: 3, End: 5},
		},
		{"after semicolon", "a;\n", 3, Context{Kind: ContextGlobal, Start: 3, End: 3}},
		{
			"template hole",
			"`${ob", 5,
			Context{Kind: ContextGlobal, Prefix: "ob", Start: 3, End: 5},
		},
		{
			"after a comment line",
			"// note\n", 8,
			Context{Kind: ContextGlobal, Start: 8, End: 8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContextAt(tt.src, tt.cursor)
			if got != tt.want {
				t.Errorf("ContextAt(%q, %d) = %+v, want %+v", tt.src, tt.cursor, got, tt.want)
			}
		})
	}
}

func TestContextAtBracket(t *testing.T) {
	got := ContextAt("arr[", 4)
	want := Context{Kind: ContextBracket, ObjectPath: "arr", Start: 4, End: 4}
	if got != want {
		t.Errorf("ContextAt = %+v, want %+v", got, want)
	}
}

func TestContextAtStringAndComment(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		cursor int
		want   ContextKind
	}{
		{"open string", "'hello wor", 10, ContextString},
		{"closed string interior", `"abc"`, 3, ContextString},
		{"template text", "`hi there", 9, ContextString},
		{"regex", "x = /ab", 7, ContextString},
		{"line comment", "// note", 7, ContextComment},
		{"block comment", "/* no", 5, ContextComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContextAt(tt.src, tt.cursor)
			if got.Kind != tt.want {
				t.Errorf("ContextAt(%q, %d).Kind = %v, want %v", tt.src, tt.cursor, got.Kind, tt.want)
			}
		})
	}
}

func TestContextAtClampsCursor(t *testing.T) {
	if got := ContextAt("ab", 99); got.Kind != ContextGlobal || got.Prefix != "ab" {
		t.Errorf("ContextAt past end = %+v, want global prefix ab", got)
	}
	if got := ContextAt("ab", -1); got.Kind != ContextGlobal || got.Prefix != "" {
		t.Errorf("ContextAt before start = %+v, want empty global", got)
	}
}

func TestContextAtSpansWhitespace(t *testing.T) {
	// The path walk drops whitespace between tokens but keeps the
	// expression text itself.
	got := ContextAt("foo . bar.", 10)
	if got.Kind != ContextMember || got.ObjectPath != "foo.bar" {
		t.Errorf("ContextAt = %+v, want member of foo.bar", got)
	}
}
