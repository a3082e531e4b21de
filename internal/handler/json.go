package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// maxJSONBody bounds request bodies accepted by the JSON API.
const maxJSONBody = 16 << 10

var errInvalidJSON = domain.Invalid("", "Request body must be valid JSON")

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSONBody returns the request body if it is valid JSON. An empty body
// returns nil.
func readJSONBody(r *http.Request) (json.RawMessage, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return body, nil
}
