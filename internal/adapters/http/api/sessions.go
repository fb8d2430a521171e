package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/evalmatrix/internal/app"
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/types"
)

// SessionHandler serves the evaluation session resources.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type importResponse struct {
	Session types.SessionView `json:"session"`
	Stats   importStats       `json:"stats"`
}

type importStats struct {
	Matched int `json:"matched"`
	Dropped int `json:"dropped"`
	Coerced int `json:"coerced"`
}

type presetRequest struct {
	Preset string `json:"preset"`
}

func (h *SessionHandler) respond(w http.ResponseWriter, status int, v types.SessionView, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, v)
}

// HandleCreate handles POST /sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.CreateSession(r.Context())
	if err == nil {
		w.Header().Set("Location", "/sessions/"+v.ID)
	}
	h.respond(w, http.StatusCreated, v, err)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Session(r.Context(), r.PathValue("id"))
	h.respond(w, http.StatusOK, v, err)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMeta handles PATCH /sessions/{id}/meta.
func (h *SessionHandler) HandleMeta(w http.ResponseWriter, r *http.Request) {
	var patch service.MetaPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, err)
		return
	}
	v, err := h.deps.UpdateMeta(r.Context(), r.PathValue("id"), patch)
	h.respond(w, http.StatusOK, v, err)
}

// HandleCriterion handles PUT /sessions/{id}/criteria/{cid}.
func (h *SessionHandler) HandleCriterion(w http.ResponseWriter, r *http.Request) {
	var patch service.CriterionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, err)
		return
	}
	v, err := h.deps.UpdateCriterion(r.Context(), r.PathValue("id"), r.PathValue("cid"), patch)
	h.respond(w, http.StatusOK, v, err)
}

// HandleClearScore handles DELETE /sessions/{id}/criteria/{cid}/score.
func (h *SessionHandler) HandleClearScore(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.ClearScore(r.Context(), r.PathValue("id"), r.PathValue("cid"))
	h.respond(w, http.StatusOK, v, err)
}

// HandlePolicy handles PUT /sessions/{id}/policy.
func (h *SessionHandler) HandlePolicy(w http.ResponseWriter, r *http.Request) {
	var patch service.PolicyPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, err)
		return
	}
	v, err := h.deps.SetPolicy(r.Context(), r.PathValue("id"), patch)
	h.respond(w, http.StatusOK, v, err)
}

// HandlePreset handles POST /sessions/{id}/preset.
func (h *SessionHandler) HandlePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Preset) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing preset", ErrBadRequest))
		return
	}
	v, err := h.deps.ApplyPreset(r.Context(), r.PathValue("id"), req.Preset)
	h.respond(w, http.StatusOK, v, err)
}

// HandleReset handles POST /sessions/{id}/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Reset(r.Context(), r.PathValue("id"))
	h.respond(w, http.StatusOK, v, err)
}

// HandleExport handles GET /sessions/{id}/export.
func (h *SessionHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.deps.Export(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="evaluation-%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// HandleImport handles POST /sessions/{id}/import. The body is an exported
// document; a malformed one is rejected with 400 and changes nothing.
func (h *SessionHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	v, stats, err := h.deps.Import(r.Context(), r.PathValue("id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Session: v, Stats: toImportStats(stats)})
}

func toImportStats(s codec.ImportStats) importStats {
	return importStats{Matched: s.Matched, Dropped: s.Dropped, Coerced: s.Coerced}
}

// HandleRequestAnalysis handles POST /sessions/{id}/analysis.
func (h *SessionHandler) HandleRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.RequestAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

// HandleGetAnalysis handles GET /sessions/{id}/analysis.
func (h *SessionHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Analysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleReport handles GET /sessions/{id}/report.
func (h *SessionHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.deps.Report(r.Context(), r.PathValue("id"), &buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
