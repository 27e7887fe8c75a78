package entities

import "time"

const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleModerator = "moderator"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleModerator:
		return true
	}
	return false
}

const DefaultMessageInterval = 30 // seconds between broadcast sends

// Column widths of the users table, in characters.
const (
	MaxNameLength    = 255
	MaxEmailLength   = 255
	MaxCompanyLength = 255
	MaxPhoneLength   = 32
	MaxCPFLength     = 20
)

type User struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            string     `json:"role"`
	Company         string     `json:"company"`
	Phone           string     `json:"phone"`
	CPF             string     `json:"cpf"`
	PlanExpiresAt   *time.Time `json:"plan_expires_at"`
	MessageTemplate string     `json:"mensagem"`
	MessageInterval int        `json:"interval"`
	IAEnabled       bool       `json:"ia_enabled"`
	Contacts        []Contact  `json:"contacts"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Identity is the user snapshot carried inside a token and attached to every
// authenticated request.
type Identity struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type ProfileUpdate struct {
	Name    *string
	Company *string
	Phone   *string
	CPF     *string
}

type RoleCounts struct {
	Total      int `json:"totalUsers"`
	Admins     int `json:"adminUsers"`
	Users      int `json:"regularUsers"`
	Moderators int `json:"moderatorUsers"`
}
