package common

import (
	"encoding/json"
	"net/http"

	apperrors "skillcourt-backend/pkg/errors"
)

// RespondJSON sends a successful JSON envelope
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	response := Ok(data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondMessage sends a successful JSON envelope with a message
func RespondMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	response := OkWithMessage(data, message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondError sends an error envelope, deriving the HTTP status from the
// AppError when one is present.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		status = appErr.HTTPStatus
	}

	response := Fail[interface{}](err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondErrorStatus sends an error envelope with an explicit status
func RespondErrorStatus(w http.ResponseWriter, status int, err error) {
	response := Fail[interface{}](err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// ParseJSONBody parses JSON request body with size limit
func ParseJSONBody(r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(v)
}
