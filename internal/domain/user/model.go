package user

import "time"

// Role is the coarse role assigned to a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleApprover Role = "approver"
	RoleEditor   Role = "editor"
	RoleViewer   Role = "viewer"
)

// Capability is a single permission flag checked by mutating operations.
type Capability string

const (
	CapAdd     Capability = "add"
	CapEdit    Capability = "edit"
	CapDelete  Capability = "delete"
	CapApprove Capability = "approve"
)

// Permissions holds the per-user capability flags.
type Permissions struct {
	Add     bool `json:"add"`
	Edit    bool `json:"edit"`
	Delete  bool `json:"delete"`
	Approve bool `json:"approve"`
}

// User is an actor that can create, review and approve project records.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IsAdmin reports whether the user holds elevated rights.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Can reports whether the user holds a capability. Administrators hold all of them.
func (u *User) Can(c Capability) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin() {
		return true
	}
	switch c {
	case CapAdd:
		return u.Permissions.Add
	case CapEdit:
		return u.Permissions.Edit
	case CapDelete:
		return u.Permissions.Delete
	case CapApprove:
		return u.Permissions.Approve
	}
	return false
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
