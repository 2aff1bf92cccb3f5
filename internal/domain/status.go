package domain

// Role is the access level of a clinic staff member.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleProfessional Role = "professional"
	RoleReceptionist Role = "receptionist"
)

// Valid checks if the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessional, RoleReceptionist:
		return true
	default:
		return false
	}
}

// Profile is the resolved clinic profile of a user. Role is nil until resolved.
type Profile struct {
	ID       string
	Email    string
	FullName string
	Phone    string
	Role     *Role
	Approved bool
}

// HasRole reports whether the profile carries a resolved role.
func (p *Profile) HasRole() bool {
	return p != nil && p.Role != nil && *p.Role != ""
}

// UserStatus is the classified access status of the current user.
type UserStatus struct {
	IsAuthenticated        bool
	NeedsEmailConfirmation bool
	NeedsApproval          bool
	NeedsProfileCompletion bool
	CanAccessDashboard     bool
	User                   *Profile
}

// UnauthenticatedStatus returns the conservative all-false status.
func UnauthenticatedStatus() UserStatus {
	return UserStatus{}
}

// Settled reports whether the status can be shown as final: access is
// either denied or granted with a resolved role.
func (s UserStatus) Settled() bool {
	return !s.CanAccessDashboard || s.User.HasRole()
}

// CacheEntry is the content of the single-entry status cache.
// An empty entry has both fields nil.
type CacheEntry struct {
	UserID *string
	Status *UserStatus
}

// IsEmpty reports whether the entry holds nothing.
func (e CacheEntry) IsEmpty() bool {
	return e.UserID == nil && e.Status == nil
}
