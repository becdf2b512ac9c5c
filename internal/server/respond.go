package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	svcErr "github.com/echomatch/echomatch/internal/errors"
	"github.com/echomatch/echomatch/internal/logger"
)

var validate = validator.New()

// DecodeValid decodes a JSON request body into v and runs struct
// validation, so malformed input is rejected before any store access.
func DecodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return svcErr.InvalidArgument("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return svcErr.InvalidArgument(err.Error())
	}
	return nil
}

// RespondJSON writes v as a JSON response.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "err", err)
	}
}

// RespondError maps a service error onto its HTTP status and a JSON body.
func RespondError(w http.ResponseWriter, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "err", err)
	}
	RespondJSON(w, status, map[string]string{"error": svcErr.Message(err)})
}
