package backend

import (
	"encoding/json"
	"net/http"
	"time"
)

// errorBody is the error envelope the API has always returned.
type errorBody struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, summary string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	writeJSON(w, status, errorBody{
		Error:     summary,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
