package handle

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/myerrors"
	"ridehail/internal/ride-service/core/ports"

	"github.com/go-chi/chi/v5"
)

type RidesHandler struct {
	ridesService ports.IRidesService
	log          mylogger.Logger
}

func NewRidesHandler(rs ports.IRidesService, log mylogger.Logger) *RidesHandler {
	return &RidesHandler{
		ridesService: rs,
		log:          log,
	}
}

func (rh *RidesHandler) CreateRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		var req dto.CreateRideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		res, err := rh.ridesService.CreateRide(r.Context(), actor.ID, req)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusCreated, res)
	}
}

func (rh *RidesHandler) AvailableRides() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := rh.ridesService.AvailableRides(r.Context())
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (rh *RidesHandler) AcceptRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		res, err := rh.ridesService.AcceptRide(r.Context(), chi.URLParam(r, "ride_id"), actor.ID)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (rh *RidesHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		var req dto.UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		status := model.Status(req.Status)
		if !status.Valid() {
			JsonError(w, myerrors.ErrInvalidInput)
			return
		}

		res, err := rh.ridesService.UpdateStatus(r.Context(), chi.URLParam(r, "ride_id"), actor.ID, status)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (rh *RidesHandler) CancelRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		var req dto.CancelRideRequest
		if r.Body != nil {
			// Reason is optional; an empty body is a bare cancel.
			json.NewDecoder(r.Body).Decode(&req)
		}

		res, err := rh.ridesService.CancelRide(r.Context(), chi.URLParam(r, "ride_id"), actor, req.Reason)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (rh *RidesHandler) GetRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		res, err := rh.ridesService.GetRide(r.Context(), chi.URLParam(r, "ride_id"), actor)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (rh *RidesHandler) ListRides() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		q := dto.ListRidesQuery{
			Status: r.URL.Query().Get("status"),
		}
		q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
		q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

		res, err := rh.ridesService.ListRides(r.Context(), actor, q)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (rh *RidesHandler) RateRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)

		var req dto.RateRideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		res, err := rh.ridesService.RateRide(r.Context(), chi.URLParam(r, "ride_id"), actor.ID, req)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusCreated, res)
	}
}
