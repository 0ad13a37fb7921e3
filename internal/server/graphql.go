package server

import (
	"encoding/json"
	"net/http"
)

// handleGraphQLGet serves documents passed as URL parameters, the GET form
// of the GraphQL-over-HTTP convention.
func (s *Server) handleGraphQLGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		writeGraphQLError(w, http.StatusBadRequest, "missing query parameter")
		return
	}

	var variables map[string]interface{}
	if raw := q.Get("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variables); err != nil {
			writeGraphQLError(w, http.StatusBadRequest, "variables must be a JSON object")
			return
		}
	}

	resp := s.schema.Exec(r.Context(), query, q.Get("operationName"), variables)
	writeJSON(w, http.StatusOK, resp)
}

func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]string{{"message": message}},
	})
}
