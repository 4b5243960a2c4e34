package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/clausecheck/internal/pipeline"
	"github.com/dgallion1/clausecheck/internal/sheet"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !sheet.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s (supported: %s)",
			filepath.Ext(filename), strings.Join(sheet.ExtensionList(), ", ")), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	settings, err := s.requestSettings(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(filename, data, settings)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":       job.ID,
		"status":       pipeline.StatusQueued,
		"mode":         job.Mode,
		"poll_url":     fmt.Sprintf("/api/analyze/%s/status", job.ID),
		"results_url":  fmt.Sprintf("/api/analyze/%s/results", job.ID),
		"download_url": fmt.Sprintf("/api/analyze/%s/download", job.ID),
	})
}

// requestSettings applies form overrides to the server defaults.
func (s *Server) requestSettings(r *http.Request) (pipeline.Settings, error) {
	settings := s.defaults
	if v := r.FormValue("mode"); v != "" {
		mode, err := pipeline.ParseMode(v)
		if err != nil {
			return settings, err
		}
		settings.Mode = mode
	}
	override(r, "location_column", &settings.LocationColumn)
	override(r, "clause_type_column", &settings.ClauseTypeColumn)
	override(r, "clause_column", &settings.ClauseColumn)
	override(r, "subject", &settings.Prompts.Subject)
	override(r, "allowed_prompt", &settings.Prompts.Allowed)
	override(r, "summary_prompt", &settings.Prompts.Summary)
	override(r, "prohibited_use_prompt", &settings.Prompts.ProhibitedUse)
	override(r, "use_clause_prompt", &settings.Prompts.UseClause)
	// An explicitly empty keyword disables the default filter.
	if _, ok := r.PostForm["search_keyword"]; ok {
		settings.SearchKeyword = strings.TrimSpace(r.PostFormValue("search_keyword"))
	}
	if v := r.FormValue("summary_max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return settings, fmt.Errorf("summary_max_tokens must be a positive integer")
		}
		settings.Prompts.SummaryMaxTokens = n
	}
	return settings.WithDefaults(), nil
}

func override(r *http.Request, key string, dst *string) {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		*dst = v
	}
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	out, ok := completedOutput(w, job)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "html" {
		page, err := renderResultsHTML(job.Filename, out)
		if err != nil {
			s.log.Error("render results failed", "job_id", job.ID, "error", err)
			jsonError(w, "failed to render results", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
		return
	}

	records := out.Records()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":  job.ID,
		"columns": records[0],
		"rows":    records[1:],
		"report":  job.Snapshot().Report,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	if _, ok := completedOutput(w, job); !ok {
		return
	}
	_, data := job.Output()
	w.Header().Set("Content-Type", sheet.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.DefaultOutputName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) jobFromRequest(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

// completedOutput writes a 409 unless the job has finished successfully.
func completedOutput(w http.ResponseWriter, job *pipeline.Job) (*sheet.Output, bool) {
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted {
		msg := fmt.Sprintf("job is %s", snap.Status)
		if len(snap.Progress.Errors) > 0 {
			msg += ": " + snap.Progress.Errors[len(snap.Progress.Errors)-1]
		}
		jsonError(w, msg, http.StatusConflict)
		return nil, false
	}
	out, _ := job.Output()
	return out, true
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
