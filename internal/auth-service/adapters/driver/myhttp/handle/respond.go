package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"ridehail/internal/auth-service/core/myerrors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func JsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func JsonError(w http.ResponseWriter, err error) {
	status, code := classify(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: err.Error()},
	})
}

func JsonErrorStatus(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: err.Error()},
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, myerrors.ErrEmailRegistered):
		return http.StatusConflict, "EMAIL_REGISTERED"
	case errors.Is(err, myerrors.ErrBadCredentials):
		return http.StatusUnauthorized, "BAD_CREDENTIALS"
	case errors.Is(err, myerrors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
