package domain

// Role is the caller role asserted by the identity provider.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleUser   Role = "user"
)

// Identity is the authenticated caller of an operation.
type Identity struct {
	ID   string
	Name string
	Role Role
}

// CanActFor reports whether the caller may act on behalf of id.
func (i Identity) CanActFor(id string) bool {
	return i.Role == RoleAdmin || (i.ID != "" && i.ID == id)
}
