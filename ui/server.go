// Package ui serves the notebook web interface: an HTML shell, a JSON
// API over the session registry, and a server-sent event stream for cell
// execution.
package ui

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/tliron/commonlog"

	"github.com/inkcell/quire/kernel"
	"github.com/inkcell/quire/notebook"
	"github.com/inkcell/quire/render"
)

//go:embed static templates
var embeddedFS embed.FS

type Server struct {
	registry   *notebook.Registry
	log        commonlog.Logger
	staticFS   fs.FS
	templateFS fs.FS
	templates  *template.Template
	funcMap    template.FuncMap
	mux        *http.ServeMux
}

func NewServer(registry *notebook.Registry) (*Server, error) {
	staticFS := overlayFS("ui/static", mustSub(embeddedFS, "static"))
	templateFS := overlayFS("ui/templates", mustSub(embeddedFS, "templates"))

	funcMap := template.FuncMap{
		"shortID": func(id string) string {
			if len(id) > 8 {
				return id[:8]
			}
			return id
		},
		"fmtTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		registry:   registry,
		log:        commonlog.GetLogger("quire.ui"),
		staticFS:   staticFS,
		templateFS: templateFS,
		templates:  tmpl,
		funcMap:    funcMap,
		mux:        http.NewServeMux(),
	}

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /sessions/{id}/run", s.handleRun)
	s.mux.HandleFunc("GET /sessions/{id}/vars", s.handleVars)
	s.mux.HandleFunc("POST /sessions/{id}/complete", s.handleComplete)
	s.mux.HandleFunc("POST /sessions/{id}/classify", s.handleClassify)
	s.mux.HandleFunc("POST /sessions/{id}/inspect", s.handleInspect)
	s.mux.HandleFunc("GET /", s.handleIndex)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, err := template.New("").Funcs(s.funcMap).ParseFS(s.templateFS, "*.html")
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	tmpl.ExecuteTemplate(w, name, data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*notebook.Notebook, bool) {
	n, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return n, true
}

type sessionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Cells     int       `json:"cells"`
}

func describe(n *notebook.Notebook) sessionInfo {
	return sessionInfo{
		ID:        n.ID,
		Name:      n.Name,
		CreatedAt: n.CreatedAt,
		Cells:     len(n.Cells()),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err == nil {
			req.Name = r.FormValue("name")
		}
	}

	n, err := s.registry.Create(req.Name)
	if err != nil {
		s.log.Errorf("create session: %s", err.Error())
		http.Error(w, "create session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusCreated, describe(n))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	out := make([]sessionInfo, 0, len(list))
	for _, n := range list {
		out = append(out, describe(n))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		sessionInfo
		History []notebook.Cell `json:"history"`
	}{describe(n), n.Cells()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Remove(r.PathValue("id")) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type runRequest struct {
	Language string `json:"language"`
	Source   string `json:"source"`
}

// streamEvent is a notebook event plus an HTML rendering of terminal
// output, so the browser can show colored console writes.
type streamEvent struct {
	notebook.Event
	HTML string `json:"html,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = "javascript"
	}

	if r.Header.Get("Accept") == "application/json" {
		cell := n.Run(r.Context(), req.Language, req.Source)
		s.writeJSON(w, http.StatusOK, cell)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.log.Debugf("run: session %s, %d bytes", n.ID, len(req.Source))

	// Events are written from the run's own goroutine, so order matches
	// execution. A closed connection cancels the request context, which
	// interrupts the interpreter.
	n.RunObserved(r.Context(), req.Language, req.Source, func(ev notebook.Event) {
		out := streamEvent{Event: ev}
		if ev.Type == notebook.EventOutput {
			out.HTML = render.ANSIToHTML(ev.Text)
		}
		writeSSE(w, flusher, string(ev.Type), out)
	})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}

func (s *Server) handleVars(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookup(w, r)
	if !ok {
		return
	}
	vars := n.Session().Vars()
	if vars == nil {
		vars = []kernel.VarInfo{}
	}
	s.writeJSON(w, http.StatusOK, vars)
}

type completeRequest struct {
	Source string `json:"source"`
	Cursor int    `json:"cursor"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	cx, candidates := n.Session().Complete(req.Source, req.Cursor)
	s.writeJSON(w, http.StatusOK, struct {
		Kind       string             `json:"kind"`
		Prefix     string             `json:"prefix"`
		ObjectPath string             `json:"object_path,omitempty"`
		Start      int                `json:"start"`
		End        int                `json:"end"`
		Candidates []kernel.Candidate `json:"candidates"`
	}{cx.Kind.String(), cx.Prefix, cx.ObjectPath, cx.Start, cx.End, candidates})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	verdict := n.Session().Classify(req.Source)
	s.writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Indent string `json:"indent"`
	}{verdict.Status.String(), verdict.Indent})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	insp, found := n.Session().Inspect(req.Path)
	if !found {
		http.Error(w, "path not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, insp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := struct {
		Sessions []*notebook.Notebook
	}{
		Sessions: s.registry.List(),
	}
	s.render(w, "index.html", data)
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

type overlayFSType struct {
	primary   fs.FS
	secondary fs.FS
}

// overlayFS prefers files from a working-tree directory over the embedded
// copies, so templates and scripts can be edited without rebuilding.
func overlayFS(primaryPath string, secondary fs.FS) fs.FS {
	return &overlayFSType{
		primary:   os.DirFS(primaryPath),
		secondary: secondary,
	}
}

func (o *overlayFSType) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	return o.secondary.Open(name)
}

func (o *overlayFSType) ReadDir(name string) ([]fs.DirEntry, error) {
	entries := make(map[string]fs.DirEntry)

	if rd, ok := o.secondary.(fs.ReadDirFS); ok {
		if list, err := rd.ReadDir(name); err == nil {
			for _, e := range list {
				entries[e.Name()] = e
			}
		}
	}

	if rd, ok := o.primary.(fs.ReadDirFS); ok {
		if list, err := rd.ReadDir(name); err == nil {
			for _, e := range list {
				entries[e.Name()] = e
			}
		}
	}

	result := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, e)
	}
	return result, nil
}
