package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/engine"
	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/render"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code: bad versions and windows are the
// client's fault, missing snapshots make the API unavailable, and a remark
// that cannot be expanded is unprocessable.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var (
		unknown    *version.UnknownVersionError
		invalid    *version.InvalidRangeError
		unresolved *placeholder.UnresolvedReferenceError
		renderErr  *render.Error
	)
	switch {
	case errors.As(err, &unknown), errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNoSchema):
		status = http.StatusServiceUnavailable
	case errors.As(err, &unresolved), errors.As(err, &renderErr):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// window reads the from and to query parameters, defaulting to the
// catalogue's window, and closes the result.
func window(r *http.Request, cat *catalogue.Catalogue) (version.Range, error) {
	w := cat.DefaultWindow
	if from := r.URL.Query().Get("from"); from != "" {
		w.Lo = version.Version(from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		w.Hi = version.Version(to)
	}
	if err := cat.Order.Validate(w); err != nil {
		return version.Range{}, err
	}
	return cat.Order.Close(w), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"catalogue": s.engine.Catalogue().Source,
		"schema":    s.engine.HasSchema(),
	})
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	cat := s.engine.Catalogue()
	win, err := window(r, cat)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	infos, err := cat.Versions(win, r.URL.Query().Get("window") == "true")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	rdr, err := s.engine.Renderer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	win, err := window(r, rdr.Catalogue())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	els, err := rdr.Elements(win)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, els)
}

func (s *Server) handleElement(w http.ResponseWriter, r *http.Request) {
	el, err := schema.ParseAnchor(chi.URLParam(r, "anchor"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rdr, err := s.engine.Renderer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	win, err := window(r, rdr.Catalogue())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	f, err := rdr.Render(el, win)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<td%s>%s</td>\n", f.Category.Attr(), f.HTML)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	win, err := window(r, s.engine.Catalogue())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := engine.ChangesOptions{All: r.URL.Query().Get("all") == "true"}
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := schema.ParseKind(k)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		opts.Kind = &kind
	}

	report, err := s.engine.Changes(win, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// renderResponse is the JSON shape of /api/render.
type renderResponse struct {
	Window    version.Range     `json:"window"`
	Fragments []render.Fragment `json:"fragments"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	rdr, err := s.engine.Renderer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	win, err := window(r, rdr.Catalogue())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	frags, err := rdr.RenderWindow(r.Context(), win)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("needs_remark") == "true" {
		kept := frags[:0]
		for _, f := range frags {
			if f.NeedsRemark {
				kept = append(kept, f)
			}
		}
		frags = kept
	}
	writeJSON(w, http.StatusOK, renderResponse{Window: win, Fragments: frags})
}

func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	rdr, err := s.engine.Renderer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	win, err := window(r, rdr.Catalogue())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	guide, err := rdr.NotationGuide(win)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, guide)
}

// lintResponse is the JSON shape of /api/lint.
type lintResponse struct {
	Catalogue string            `json:"catalogue"`
	Issues    []catalogue.Issue `json:"issues"`
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	sev, err := catalogue.ParseSeverity(r.URL.Query().Get("severity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	cat := s.engine.Catalogue()
	opts := catalogue.LintOptions{
		Scalars:     append(append([]string{}, render.DocumentScalarNames...), s.lintScalars...),
		MinSeverity: sev,
	}
	if index, err := s.engine.Index(); err == nil {
		win, err := window(r, cat)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		opts.Index = index
		opts.Window = win
	}

	issues := cat.Lint(opts)
	if issues == nil {
		issues = []catalogue.Issue{}
	}
	writeJSON(w, http.StatusOK, lintResponse{Catalogue: cat.Source, Issues: issues})
}

// handleEvents streams reload events until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-updates:
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("failed to encode event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}
