package server

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/observability"
	"github.com/matzehuels/exprtrail/pkg/pipeline"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/store"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

type documentResponse struct {
	ID        string       `json:"id"`
	Hash      string       `json:"hash,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Steps     []typez.Step `json:"steps"`
}

type summaryResponse struct {
	ID        string    `json:"id"`
	Steps     int       `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

type stepResponse struct {
	Step     typez.Step              `json:"step"`
	Trail    []int                   `json:"trail"`
	Elements render.Set              `json:"elements"`
	Diff     diffResponse            `json:"diff"`
	Stats    observability.StepStats `json:"stats"`
}

type diffResponse struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Kept    []string `json:"kept"`
}

var artifactTypes = map[string]string{
	pipeline.FormatSVG: "image/svg+xml",
	pipeline.FormatPNG: "image/png",
	pipeline.FormatDOT: "text/vnd.graphviz; charset=utf-8",
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != typez.MediaType && mt != "application/json") {
			s.writeError(w, r, errs.New(errs.ErrCodeUnsupported, "unsupported content type %q", ct))
			return
		}
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	doc, err := typez.Decode(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: errorDetail{
				Code: errs.ErrCodeInvalidInput, Message: "document too large",
			}})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if err := doc.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(doc.Steps()) == 0 {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidDocument, "document has no states"))
		return
	}

	rec, err := s.cfg.Store.Put(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cfg.Logger.Info("document stored", "id", rec.ID, "steps", rec.Steps)
	w.Header().Set("Location", "/documents/"+rec.ID)
	writeJSON(w, http.StatusCreated, summaryResponse{ID: rec.ID, Steps: rec.Steps, CreatedAt: rec.CreatedAt})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.cfg.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]summaryResponse, len(recs))
	for i, rec := range recs {
		out[i] = summaryResponse{ID: rec.ID, Steps: rec.Steps, CreatedAt: rec.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, doc, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		ID:        rec.ID,
		Hash:      rec.Hash,
		CreatedAt: rec.CreatedAt,
		Steps:     doc.Steps(),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errs.ValidateDocumentID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.cfg.Store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStep serves one step, as JSON or as a diagram when the step carries a
// format suffix.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	_, doc, ok := s.load(w, r)
	if !ok {
		return
	}

	stepParam, format := splitFormat(chi.URLParam(r, "step"))
	step, err := strconv.Atoi(stepParam)
	if err != nil {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "invalid step %q", stepParam))
		return
	}
	total := len(doc.Steps())
	if err := pipeline.ValidateSteps([]int{step}, total); err != nil {
		s.writeError(w, r, err)
		return
	}

	trail, err := s.trail(r, step, total)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.cfg.Runner.Execute(r.Context(), doc, pipeline.Options{
		Formats:  []string{format},
		Steps:    append(trail, step),
		Detailed: s.cfg.Detailed && format != pipeline.FormatJSON,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	frame := res.Frames[len(res.Frames)-1]

	if format != pipeline.FormatJSON {
		w.Header().Set("Content-Type", artifactTypes[format])
		w.Header().Set("Cache-Control", "private, max-age=3600")
		_, _ = w.Write(frame.Artifacts[format])
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{
		Step:     frame.Step,
		Trail:    frame.Trail,
		Elements: frame.Set,
		Diff: diffResponse{
			Added:   orEmpty(frame.Diff.AddedNodes),
			Removed: orEmpty(frame.Diff.RemovedNodes),
			Kept:    orEmpty(frame.Diff.KeptNodes),
		},
		Stats: frame.Stats,
	})
}

// trail resolves the steps displayed before step in a document with total
// steps. ?from= takes a step list ("3" or "0,3"); ?from= with an empty value
// means nothing was displayed. Without the parameter every earlier step is
// assumed.
func (s *Server) trail(r *http.Request, step, total int) ([]int, error) {
	q := r.URL.Query()
	if !q.Has("from") {
		trail := make([]int, step)
		for i := range trail {
			trail[i] = i
		}
		return trail, nil
	}
	return pipeline.ParseStepsWithin(q.Get("from"), total)
}

// load fetches and decodes the document named in the URL, writing the error
// response itself when that fails.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (store.Record, *typez.Document, bool) {
	id := chi.URLParam(r, "id")
	if err := errs.ValidateDocumentID(id); err != nil {
		s.writeError(w, r, err)
		return store.Record{}, nil, false
	}
	rec, err := s.cfg.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return store.Record{}, nil, false
	}
	doc, err := rec.Document()
	if err != nil {
		s.writeError(w, r, err)
		return store.Record{}, nil, false
	}
	return rec, doc, true
}

// splitFormat separates a ".svg", ".png" or ".dot" suffix from a step
// parameter.
func splitFormat(param string) (string, string) {
	for format := range artifactTypes {
		if base, ok := strings.CutSuffix(param, "."+format); ok {
			return base, format
		}
	}
	return param, pipeline.FormatJSON
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
