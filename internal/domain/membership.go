package domain

// Role is a user's role within a business.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// Membership is the (business, user) → role capability consumed from the
// team administration collaborator.
type Membership struct {
	BusinessID string
	UserID     string
	Role       Role
}

// CanWrite reports whether the role may trigger syncs, create snapshots
// and receive artifact download URLs. Read-only roles get snapshot
// records without URLs.
func (r Role) CanWrite() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}
