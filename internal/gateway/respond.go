package gateway

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// errorEnvelope is the JSON error body every API route returns.
type errorEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	writeJSON(w, pkgerrors.ToHTTPStatus(code), errorEnvelope{
		Error:   true,
		Message: pkgerrors.MessageOf(err),
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: true, Message: message})
}
