package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// marshalFailure is served when a response cannot be encoded.
var marshalFailure = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("api: cannot marshal static response: " + err.Error())
	}
	return b
}

// writeJSONResponse encodes response before touching headers, so an encoding failure still
// produces a well-formed 500. Responses carry personal contact details and are never cached.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal response", "status", statusCode, "error", err)
		body, statusCode = marshalFailure, http.StatusInternalServerError
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Server.writeJSONResponse: client went away", "error", err)
	}
}

// writeError sends the error envelope.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, models.Error(message))
}
