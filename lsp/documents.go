package lsp

import (
	"strings"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// documentStore keeps the text of every open document, keyed by URI. The
// server advertises full-document sync, so each change replaces the whole
// overlay with the editor's current view.
type documentStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: make(map[string]string)}
}

func (ds *documentStore) set(uri, text string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.docs[uri] = text
}

func (ds *documentStore) remove(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.docs, uri)
}

func (ds *documentStore) get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	text, ok := ds.docs[uri]
	return text, ok
}

// offsetAt converts a protocol position to a byte offset into text,
// clamped to the document. Characters are counted in bytes, which lines
// up with the protocol for the ASCII-dominant source this server sees.
func offsetAt(text string, pos protocol.Position) int {
	offset := 0
	for line := int(pos.Line); line > 0; line-- {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	lineEnd := len(text)
	if nl := strings.IndexByte(text[offset:], '\n'); nl >= 0 {
		lineEnd = offset + nl
	}
	if col := offset + int(pos.Character); col < lineEnd {
		return col
	}
	return lineEnd
}
