package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"ridehail/internal/ride-service/core/myerrors"
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

// JsonError maps domain sentinels onto HTTP statuses and stable error
// codes. RIDE_UNAVAILABLE is deliberately distinct from RIDE_NOT_FOUND so
// a driver losing the accept race drops the entry instead of retrying.
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
	case errors.Is(err, myerrors.ErrRideNotFound):
		return http.StatusNotFound, "RIDE_NOT_FOUND"
	case errors.Is(err, myerrors.ErrRideUnavailable):
		return http.StatusConflict, "RIDE_UNAVAILABLE"
	case errors.Is(err, myerrors.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, myerrors.ErrDriverNotAvailable):
		return http.StatusConflict, "DRIVER_NOT_AVAILABLE"
	case errors.Is(err, myerrors.ErrRatingUnavailable):
		return http.StatusConflict, "RATING_UNAVAILABLE"
	case errors.Is(err, myerrors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, myerrors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
