package models

type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Identity is the caller resolved from a verified bearer token.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanScan reports whether the identity may verify tickets at the door.
func (i Identity) CanScan() bool {
	return i.Role == RoleAdmin || i.Role == RoleOrganizer
}
