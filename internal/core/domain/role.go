package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Roles is the fixed set of role names seeded at startup.
var Roles = []string{RoleUser, RoleAdmin}

// Role is a named permission bucket.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoleSet is an immutable name/ID index over the seeded roles. It is built once
// at startup and safe for concurrent reads.
type RoleSet struct {
	byName map[string]Role
	byID   map[string]Role
}

// NewRoleSet indexes roles by name and identifier. Later duplicates are ignored.
func NewRoleSet(roles []Role) *RoleSet {
	rs := &RoleSet{
		byName: make(map[string]Role, len(roles)),
		byID:   make(map[string]Role, len(roles)),
	}
	for _, r := range roles {
		if _, ok := rs.byName[r.Name]; ok {
			continue
		}
		rs.byName[r.Name] = r
		rs.byID[r.ID] = r
	}
	return rs
}

// ByName returns the role with the given name.
func (rs *RoleSet) ByName(name string) (Role, bool) {
	r, ok := rs.byName[name]
	return r, ok
}

// Names resolves role identifiers to names, skipping unknown IDs.
func (rs *RoleSet) Names(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if r, ok := rs.byID[id]; ok {
			names = append(names, r.Name)
		}
	}
	return names
}

// IsKnown reports whether name belongs to the fixed role set.
func IsKnown(name string) bool {
	for _, r := range Roles {
		if r == name {
			return true
		}
	}
	return false
}
