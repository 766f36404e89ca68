package question

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the bundled subject catalog.
type HTTPHandler struct {
	catalog *Catalog
}

func NewHTTPHandler(catalog *Catalog) *HTTPHandler {
	return &HTTPHandler{catalog: catalog}
}

// ListSubjects handles GET /v1/subjects
func (h *HTTPHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"subjects": h.catalog.Subjects(),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
