// Package httpx provides the JSON response envelope shared by every API
// handler.
package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/store"
)

// Envelope is the uniform response body: every endpoint answers with a
// status code, a human message and an optional result payload.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

// Respond writes an envelope with the given status, message and result.
func Respond(w http.ResponseWriter, status int, message string, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Status: status, Message: message, Result: result}); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// RespondOK writes a 200 envelope with the result payload.
func RespondOK(w http.ResponseWriter, result interface{}) {
	Respond(w, http.StatusOK, "success", result)
}

// RespondCreated writes a 201 envelope with the result payload.
func RespondCreated(w http.ResponseWriter, result interface{}) {
	Respond(w, http.StatusCreated, "created", result)
}

// RespondError maps an error onto the envelope using the shared taxonomy:
// missing data is 404, an unreachable backend is 503, a backend that
// contradicts itself is 502, anything else is 500.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rule.ErrNoData), errors.Is(err, store.ErrNotFound):
		Respond(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, store.ErrConnection):
		Respond(w, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.Is(err, store.ErrConsistency):
		Respond(w, http.StatusBadGateway, err.Error(), nil)
	default:
		Respond(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

// RespondBadRequest writes a 400 envelope for malformed input.
func RespondBadRequest(w http.ResponseWriter, message string) {
	Respond(w, http.StatusBadRequest, message, nil)
}

// RespondUnauthorized writes a 401 envelope.
func RespondUnauthorized(w http.ResponseWriter, message string) {
	Respond(w, http.StatusUnauthorized, message, nil)
}

// RespondForbidden writes a 403 envelope.
func RespondForbidden(w http.ResponseWriter, message string) {
	Respond(w, http.StatusForbidden, message, nil)
}
