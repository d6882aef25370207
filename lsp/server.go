// Package lsp exposes a live quire session to editors over the Language
// Server Protocol: completion from the session's names and members, hover
// previews from the runtime introspector. Documents are synced whole, so
// the overlay always matches the editor buffer.
package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/inkcell/quire/kernel"
	"github.com/inkcell/quire/scan"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "quire"

type Server struct {
	session *kernel.Session
	docs    *documentStore
	handler protocol.Handler
	server  *server.Server
	version string
	log     commonlog.Logger
}

// NewServer builds a language server backed by a fresh session.
func NewServer(version string) (*Server, error) {
	session, err := kernel.New(kernel.Options{Name: "lsp"})
	if err != nil {
		return nil, err
	}
	s := &Server{
		session: session,
		docs:    newDocumentStore(),
		version: version,
		log:     commonlog.GetLogger("quire.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:             s.initialize,
		Initialized:            s.initialized,
		Shutdown:               s.shutdown,
		SetTrace:               s.setTrace,
		TextDocumentDidOpen:    s.textDocumentDidOpen,
		TextDocumentDidChange:  s.textDocumentDidChange,
		TextDocumentDidClose:   s.textDocumentDidClose,
		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = server.NewServer(&s.handler, lsName, false)

	return s, nil
}

// Session returns the session answering the server's queries.
func (s *Server) Session() *kernel.Session {
	return s.session
}

// RunStdio serves the protocol on stdin/stdout until the client hangs up.
func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", "["},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.log.Infof("session %q ready", s.session.Name())
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.docs.set(params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.docs.set(params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.docs.remove(params.TextDocument.URI)
	return nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	cursor := offsetAt(text, params.Position)
	cx, candidates := s.session.Complete(text, cursor)
	if cx.Kind == scan.ContextGlobal {
		candidates = withDocumentNames(text, cx.Prefix, candidates)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	items := make([]protocol.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		kind := completionKind(c.Kind)
		item := protocol.CompletionItem{
			Label:    c.Label,
			Kind:     &kind,
			SortText: sortKey(c),
		}
		if c.Detail != "" {
			detail := c.Detail
			item.Detail = &detail
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	path := pathAt(text, offsetAt(text, params.Position))
	if path == "" {
		return nil, nil
	}
	insp, found := s.session.Inspect(path)
	if !found {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: hoverMarkdown(path, insp),
		},
	}, nil
}

// withDocumentNames adds names declared anywhere in the buffer, so
// completion offers them before the code has ever run.
func withDocumentNames(text, prefix string, candidates []kernel.Candidate) []kernel.Candidate {
	names := scan.Scan(text).DeclaredNames()
	if len(names) == 0 {
		return candidates
	}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.Label] = true
	}
	var extra []kernel.Candidate
	for _, name := range names {
		if seen[name] || !strings.HasPrefix(name, prefix) {
			continue
		}
		seen[name] = true
		extra = append(extra, kernel.Candidate{Label: name, Kind: "variable"})
	}
	if len(extra) == 0 {
		return candidates
	}
	return append(extra, candidates...)
}

// pathAt widens the cursor to the end of the identifier under it and
// rebuilds the dotted path that identifier completes.
func pathAt(text string, cursor int) string {
	end := cursor
	for end < len(text) && scan.IsIdentPart(text[end]) {
		end++
	}
	cx := scan.ContextAt(text, end)
	switch cx.Kind {
	case scan.ContextGlobal:
		return cx.Prefix
	case scan.ContextMember:
		if cx.Prefix == "" {
			return cx.ObjectPath
		}
		return cx.ObjectPath + "." + cx.Prefix
	}
	return ""
}

// hoverMarkdown formats an inspection as a signature line plus preview.
func hoverMarkdown(path string, insp kernel.Inspection) string {
	label := insp.Type
	switch insp.Kind {
	case kernel.KindIndexed, kernel.KindKeyed:
		label = fmt.Sprintf("%s(%d)", insp.Type, insp.Size)
	}
	return fmt.Sprintf("```js\n%s: %s\n```\n%s", path, label, insp.Preview)
}

func completionKind(kind string) protocol.CompletionItemKind {
	switch kind {
	case "method":
		return protocol.CompletionItemKindMethod
	case "property":
		return protocol.CompletionItemKindProperty
	case "function":
		return protocol.CompletionItemKindFunction
	case "variable":
		return protocol.CompletionItemKindVariable
	case "global":
		return protocol.CompletionItemKindValue
	case "keyword":
		return protocol.CompletionItemKindKeyword
	}
	return protocol.CompletionItemKindText
}

// sortKey ranks keywords below everything the session actually holds.
func sortKey(c kernel.Candidate) *string {
	rank := "0"
	if c.Kind == "keyword" {
		rank = "1"
	}
	key := rank + "_" + c.Label
	return &key
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
