package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/store-locator/internal/models"
)

const (
	msgInvalidRequest = "Invalid request"
	msgInternalError  = "Internal server error"
)

// maxBodyBytes caps request bodies; store payloads are tiny.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("Failed to encode response")
	}
}

// writeInvalid rejects a malformed request with the standard envelope.
func writeInvalid(w http.ResponseWriter, r *http.Request, detail string) {
	writeJSON(w, r, http.StatusBadRequest, models.APIResponse{
		Success: false,
		Message: msgInvalidRequest,
		Error:   detail,
	})
}

// writeFailure reports an upstream failure; err is logged, not returned.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.WithFields(log.Fields{"op": op, "path": r.URL.Path}).WithError(err).Error("Request failed")
	writeJSON(w, r, http.StatusInternalServerError, models.APIResponse{
		Success: false,
		Message: msgInternalError,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
