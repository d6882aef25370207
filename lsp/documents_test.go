package lsp

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDocumentStore(t *testing.T) {
	ds := newDocumentStore()
	if _, ok := ds.get("file:///a.js"); ok {
		t.Fatal("get on empty store should miss")
	}

	ds.set("file:///a.js", "var x = 1")
	text, ok := ds.get("file:///a.js")
	if !ok || text != "var x = 1" {
		t.Fatalf("get = %q, %v; want opened text", text, ok)
	}

	ds.set("file:///a.js", "var y = 2")
	if text, _ := ds.get("file:///a.js"); text != "var y = 2" {
		t.Errorf("get after update = %q, want replaced text", text)
	}

	ds.remove("file:///a.js")
	if _, ok := ds.get("file:///a.js"); ok {
		t.Error("get after remove should miss")
	}
}

func TestOffsetAt(t *testing.T) {
	text := "first\nsecond\nthird"
	tests := []struct {
		name      string
		line, col uint32
		want      int
	}{
		{"start", 0, 0, 0},
		{"mid first line", 0, 3, 3},
		{"start of second line", 1, 0, 6},
		{"mid second line", 1, 4, 10},
		{"last line", 2, 5, 18},
		{"column past line end clamps", 0, 99, 5},
		{"line past document clamps", 9, 0, len(text)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := offsetAt(text, protocol.Position{Line: tt.line, Character: tt.col})
			if got != tt.want {
				t.Errorf("offsetAt(%d:%d) = %d, want %d", tt.line, tt.col, got, tt.want)
			}
		})
	}
}

func TestOffsetAtEmptyDocument(t *testing.T) {
	if got := offsetAt("", protocol.Position{Line: 0, Character: 5}); got != 0 {
		t.Errorf("offsetAt on empty text = %d, want 0", got)
	}
}
