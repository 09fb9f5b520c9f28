package models

// User roles. Admin doubles as the escrow arbiter.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// User mirrors the auth-facing user payload.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}
