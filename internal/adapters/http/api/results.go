package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/azicorr/internal/adapters/repository"
	"github.com/okian/azicorr/internal/domain/observable"
)

// ResultsReader reads finished distributions.
type ResultsReader interface {
	Get(ctx context.Context, key string) (repository.Record, error)
	List(ctx context.Context) []repository.Record
}

// ResultsHandler serves finished distributions.
type ResultsHandler struct {
	results ResultsReader
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(results ResultsReader) *ResultsHandler {
	return &ResultsHandler{results: results}
}

type listResponse struct {
	Count   int                 `json:"count"`
	Results []repository.Record `json:"results"`
}

// HandleList handles GET /results. The optional kind and bin (centrality
// bin index) query parameters filter the list; bins are omitted unless
// full=true.
func (h *ResultsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	full := q.Get("full") == "true"

	kind := q.Get("kind")
	if kind != "" {
		if _, ok := observable.ParseKind(kind); !ok {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown kind %q", ErrBadRequest, kind))
			return
		}
	}
	bin := -1
	if v := q.Get("bin"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: bin %q", ErrBadRequest, v))
			return
		}
		bin = n
	}

	out := make([]repository.Record, 0)
	for _, rec := range h.results.List(r.Context()) {
		if kind != "" && rec.Kind != kind {
			continue
		}
		if bin >= 0 && rec.Bin != bin {
			continue
		}
		if !full {
			rec.Bins = nil
		}
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, listResponse{Count: len(out), Results: out})
}

// HandleGet handles GET /results/{key} requests.
func (h *ResultsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/results/")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rec, err := h.results.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
