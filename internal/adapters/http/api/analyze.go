package api

import (
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/okian/evalmatrix/internal/adapters/llm/gemini"
	"github.com/okian/evalmatrix/internal/domain/analysis"
)

// Proxy error messages.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgMissingKey       = "GEMINI_API_KEY missing on server"
	msgInvalidPayload   = "Invalid payload: expected { evaluation }"
	msgAnalysisFailed   = "Analysis failed"
)

// ProxyHandler forwards evaluations to the LLM for summarization. Its error
// bodies are {"error": "..."} so remote analyzer clients can read them.
type ProxyHandler struct {
	deps       ProxyDependencies
	corsOrigin string
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(deps ProxyDependencies, corsOrigin string) *ProxyHandler {
	return &ProxyHandler{deps: deps, corsOrigin: corsOrigin}
}

type proxyError struct {
	Error string `json:"error"`
}

type proxyResponse struct {
	OK       bool            `json:"ok"`
	Model    string          `json:"model"`
	Analysis json.RawMessage `json:"analysis"`
}

func (h *ProxyHandler) setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleAnalyze handles /api/analyze.
func (h *ProxyHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, proxyError{Error: msgMethodNotAllowed})
		return
	}

	if !h.deps.ProxyEnabled() {
		writeJSON(w, http.StatusInternalServerError, proxyError{Error: msgMissingKey})
		return
	}

	body, err := readBody(r)
	if err != nil || !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, proxyError{Error: msgInvalidPayload})
		return
	}
	evaluation := gjson.GetBytes(body, "evaluation")
	if !evaluation.IsObject() || !present(evaluation.Get("criteria")) {
		writeJSON(w, http.StatusBadRequest, proxyError{Error: msgInvalidPayload})
		return
	}

	content, err := h.deps.Summarize(r.Context(), []byte(evaluation.Raw))
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = msgAnalysisFailed
		}
		writeJSON(w, gemini.ServiceStatus(err), proxyError{Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, proxyResponse{
		OK:       true,
		Model:    h.deps.ProxyModel(),
		Analysis: asDocument(content),
	})
}

// present reports whether r holds a usable value. Missing, null, false,
// zero and empty-string values do not count.
func present(r gjson.Result) bool {
	switch r.Type {
	case gjson.JSON, gjson.True:
		return true
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return false
	}
}

// asDocument returns content as a JSON document, wrapping anything that is
// not JSON as {"summary": content}.
func asDocument(content string) json.RawMessage {
	if content == "" {
		return json.RawMessage(`{}`)
	}
	if raw := analysis.ExtractJSON(content); gjson.Valid(raw) {
		return json.RawMessage(raw)
	}
	b, _ := json.Marshal(map[string]string{"summary": content})
	return b
}
