package handle

import (
	"encoding/json"
	"net/http"

	"ridehail/internal/auth-service/core/domain/dto"
	"ridehail/internal/auth-service/core/ports"
	"ridehail/internal/mylogger"
)

type AuthHandler struct {
	authService ports.IAuthService
	log         mylogger.Logger
}

func NewAuthHandler(as ports.IAuthService, log mylogger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: as,
		log:         log,
	}
}

func (ah *AuthHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		res, err := ah.authService.Register(r.Context(), req)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusCreated, res)
	}
}

func (ah *AuthHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonErrorStatus(w, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}

		res, err := ah.authService.Login(r.Context(), req)
		if err != nil {
			JsonError(w, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}
