package dto

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=5,max=50"`
	Role     string `json:"role" validate:"required,oneof=RIDER DRIVER"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	UserId string `json:"user_id"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}
