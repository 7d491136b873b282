package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jcooky/go-din"

	caresetu "github.com/saketkumarjha/caresetuAgent-3.0-sub000"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

type (
	handler struct {
		agent  *caresetu.Agent
		logger *mylog.Logger
	}

	// AnswerRequest is the body of POST /v1/answer.
	AnswerRequest struct {
		SessionID string `json:"sessionId"`
		Query     string `json:"query"`
	}

	// IndexRequest is the body of POST /v1/entries.
	IndexRequest struct {
		Entries []map[string]any `json:"entries"`
		Source  string           `json:"source,omitempty"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

// NewHandler builds the REST surface over the agent registered in the
// container.
func NewHandler(c *din.Container) http.Handler {
	h := &handler{
		agent:  din.MustGetT[*caresetu.Agent](c),
		logger: din.MustGet[*mylog.Logger](c, mylog.Key),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/v1/answer", h.answer).Methods(http.MethodPost)
	r.HandleFunc("/v1/entries", h.indexEntries).Methods(http.MethodPost)
	r.HandleFunc("/v1/reindex", h.reindex).Methods(http.MethodPost)
	r.HandleFunc("/v1/suggest", h.suggest).Methods(http.MethodGet)
	r.HandleFunc("/v1/related", h.related).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", h.stats).Methods(http.MethodGet)
	r.HandleFunc("/v1/gaps", h.gaps).Methods(http.MethodGet)
	r.HandleFunc("/v1/gaps/{id}/resolve", h.resolveGap).Methods(http.MethodPost)
	r.HandleFunc("/v1/sessions/{id}", h.sessionSummary).Methods(http.MethodGet)
	r.HandleFunc("/v1/sessions/{id}", h.endSession).Methods(http.MethodDelete)
	r.HandleFunc("/v1/schema", h.schema).Methods(http.MethodGet)

	var out http.Handler = r
	out = h.loggingMiddleware(out)
	out = newRecoveryHandler(h.logger)(out)
	return out
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return
	}

	result, err := h.agent.Answer(r.Context(), req.SessionID, req.Query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) indexEntries(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	entries, err := knowledge.EntriesFromMaps(req.Entries, source)
	if err != nil {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "%v", err))
		return
	}

	if err := h.agent.IndexEntries(r.Context(), entries); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexed": len(entries)})
}

func (h *handler) reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.agent.RebuildIndex(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.agent.IndexStats())
}

func (h *handler) suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": h.agent.Suggest(prefix, queryInt(r, "max", 10)),
	})
}

func (h *handler) related(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	writeJSON(w, http.StatusOK, map[string]any{
		"related": h.agent.RelatedTerms(term, queryInt(r, "max", 10)),
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"index":    h.agent.IndexStats(),
		"learning": h.agent.LearningStats(),
	})
}

func (h *handler) gaps(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") == "true"
	writeJSON(w, http.StatusOK, map[string]any{
		"gaps": h.agent.KnowledgeGaps(openOnly),
	})
}

func (h *handler) resolveGap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProvidedInfo string `json:"providedInfo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return
	}

	if err := h.agent.ResolveKnowledgeGap(mux.Vars(r)["id"], body.ProvidedInfo); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (h *handler) sessionSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agent.SessionSummary(r.Context(), mux.Vars(r)["id"]))
}

func (h *handler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.agent.EndSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrInvalidParams):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", mylog.Err(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.logger.Info("[HTTP] request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("statusCode", rec.status),
			slog.Duration("duration", time.Since(started)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
