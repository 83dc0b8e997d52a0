package handler

import (
	"encoding/json"
	"net/http"
)

// encodeFailureBody is sent when a response value cannot be marshalled.
const encodeFailureBody = `{"error":"failed to encode response"}`

// writeJSON marshals v before touching the response, so a value that cannot
// be encoded becomes a 500 instead of a truncated body under the wrong status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(encodeFailureBody)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
