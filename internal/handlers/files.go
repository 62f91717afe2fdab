package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fingerprinter/internal/database"
	"fingerprinter/internal/hashers"
	"fingerprinter/internal/logging"
)

// GetStats returns store-wide counts.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.CalculateStats(r.Context())
	if err != nil {
		logging.Error("failed to calculate stats: %v", err)
		writeJSONError(w, "failed to calculate stats", http.StatusInternalServerError)
		return
	}
	writeJSONOK(w, stats)
}

// GetFile returns the record for the ?path= query parameter.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path parameter is required", http.StatusBadRequest)
		return
	}

	rec, err := h.store.GetFile(r.Context(), path)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get file %s: %v", path, err)
		writeJSONError(w, "failed to get file", http.StatusInternalServerError)
		return
	}
	writeJSONOK(w, rec)
}

// HashMatch is the response of an exact-digest lookup.
type HashMatch struct {
	Algorithm string                `json:"algorithm"`
	Value     string                `json:"value"`
	Files     []database.FileRecord `json:"files"`
}

// FindByHash lists every file whose {algorithm} digest equals {value}.
func (h *Handlers) FindByHash(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	alg, ok := hashers.Lookup(vars["algorithm"])
	if !ok {
		writeJSONError(w, "unknown algorithm: "+vars["algorithm"], http.StatusBadRequest)
		return
	}

	value := vars["value"]
	if value == "" {
		writeJSONError(w, "hash value is required", http.StatusBadRequest)
		return
	}

	files, err := h.store.FindByHash(r.Context(), alg.Name, value)
	if err != nil {
		logging.Error("failed to look up %s %s: %v", alg.Name, value, err)
		writeJSONError(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []database.FileRecord{}
	}

	writeJSONOK(w, HashMatch{Algorithm: alg.Name, Value: value, Files: files})
}

// ListFiles returns one page of records (?limit=&offset=).
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeJSONError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil || offset < 0 {
		writeJSONError(w, "invalid offset", http.StatusBadRequest)
		return
	}

	list, err := h.store.ListFiles(r.Context(), limit, offset)
	if err != nil {
		logging.Error("failed to list files: %v", err)
		writeJSONError(w, "failed to list files", http.StatusInternalServerError)
		return
	}
	if list.Items == nil {
		list.Items = []database.FileRecord{}
	}
	writeJSONOK(w, list)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
