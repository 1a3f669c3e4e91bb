package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/doctree"
	"github.com/dgallion1/improvedoc/internal/improve"
	"github.com/dgallion1/improvedoc/internal/pipeline"
	"github.com/dgallion1/improvedoc/internal/render"
)

type processRequest struct {
	DocFile    string           `json:"docfile"`
	Backend    string           `json:"backend"`
	Attributes attrs.Attributes `json:"attributes"`
	HTML       string           `json:"html"`
}

type processResponse struct {
	HTML    string         `json:"html"`
	Applied bool           `json:"applied"`
	Report  doctree.Report `json:"report"`
}

type renderRequest struct {
	DocFile    string           `json:"docfile"`
	Attributes attrs.Attributes `json:"attributes"`
	Markdown   string           `json:"markdown"`

	// ScopeIDs prefixes generated heading ids with "_<file stem>_" so they
	// fall inside the document's own scope.
	ScopeIDs  bool `json:"scope_ids"`
	AllowHTML bool `json:"allow_html"`
}

type batchRequest struct {
	Documents []processRequest `json:"documents"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.DocFile == "" {
		jsonError(w, "docfile is required", http.StatusBadRequest)
		return
	}

	res, err := s.proc.Process(s.document(req.DocFile, req.Backend, req.Attributes), req.HTML)
	if err != nil {
		s.processError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{HTML: res.Output, Applied: res.Applied, Report: res.Report})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.DocFile == "" {
		jsonError(w, "docfile is required", http.StatusBadRequest)
		return
	}

	opts := render.Options{AllowHTML: req.AllowHTML}
	if req.ScopeIDs {
		base := path.Base(strings.ReplaceAll(req.DocFile, `\`, "/"))
		opts.IDPrefix = "_" + strings.TrimSuffix(base, path.Ext(base)) + "_"
	}
	page, err := render.Markdown([]byte(req.Markdown), opts)
	if err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.proc.Process(s.document(req.DocFile, "html5", req.Attributes), page)
	if err != nil {
		s.processError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{HTML: res.Output, Applied: res.Applied, Report: res.Report})
}

func (s *Server) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		jsonError(w, "at least one document is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, d := range req.Documents {
		if d.DocFile == "" {
			results = append(results, map[string]any{"error": "docfile is required"})
			continue
		}
		doc := s.document(d.DocFile, d.Backend, d.Attributes)
		job := pipeline.NewJob(doc.DocFile)
		job.Backend = doc.Backend
		job.Attributes = doc.Attributes
		job.SetInput([]byte(d.HTML))

		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"docfile": d.DocFile,
				"error":   err.Error(),
			})
			continue
		}
		results = append(results, map[string]any{
			"docfile":  d.DocFile,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobHTML(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	switch job.Snapshot().Status {
	case pipeline.StatusAnnotated, pipeline.StatusSkipped:
	default:
		jsonError(w, "job has no output", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(job.Output())
}

// document merges the server defaults under the request attributes.
func (s *Server) document(docFile, backend string, a attrs.Attributes) improve.Document {
	return improve.Document{
		DocFile:    docFile,
		Backend:    backend,
		Attributes: attrs.Merge(s.defaults, a),
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) processError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, improve.ErrNoContentRoot):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, improve.ErrInvalidAttributes):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("process failed", "error", err)
		jsonError(w, "process failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
