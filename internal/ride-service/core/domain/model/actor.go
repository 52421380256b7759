package model

// Roles carried in the bearer token.
const (
	RoleRider  = "RIDER"
	RoleDriver = "DRIVER"
	RoleAdmin  = "ADMIN"
)

// Actor is the token-identified caller of an operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
