package handle

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ridehail/internal/admin-service/core/domain/dto"
	"ridehail/internal/admin-service/core/ports"
	authdto "ridehail/internal/auth-service/core/domain/dto"
	authports "ridehail/internal/auth-service/core/ports"
	"ridehail/internal/mylogger"
	ridedto "ridehail/internal/ride-service/core/domain/dto"
	"ridehail/internal/ride-service/core/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type AdminHandler struct {
	adminService ports.IAdminService
	authService  authports.IAuthService
	log          mylogger.Logger
	validate     *validator.Validate
}

func NewAdminHandler(as ports.IAdminService, auth authports.IAuthService, log mylogger.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: as,
		authService:  auth,
		log:          log,
		validate:     validator.New(),
	}
}

// Login is the regular credential check with one extra gate: only ADMIN
// accounts get a token from this endpoint.
func (ah *AdminHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authdto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		res, err := ah.authService.Login(r.Context(), req)
		if err != nil {
			JsonError(w, err)
			return
		}
		if res.Role != model.RoleAdmin {
			JsonErrorStatus(w, http.StatusForbidden, "FORBIDDEN",
				errNotAnAdmin)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (ah *AdminHandler) Overview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := ah.adminService.Overview(r.Context())
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (ah *AdminHandler) ListRides() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := ridedto.ListRidesQuery{
			Status: r.URL.Query().Get("status"),
		}
		q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
		q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

		res, err := ah.adminService.ListRides(r.Context(), q)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (ah *AdminHandler) OverrideStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.OverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}
		if err := ah.validate.Struct(req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		res, err := ah.adminService.OverrideStatus(
			r.Context(), chi.URLParam(r, "ride_id"), model.Status(req.Status), req.DriverId, req.Reason)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}
