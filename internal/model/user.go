package model

import (
	"sort"
	"time"
)

// Role is the actor kind carried in access tokens and stored on user rows.
type Role string

const (
	RoleDoctor      Role = "doctor"
	RoleAdmin       Role = "admin"
	RoleSuperAdmin  Role = "super-admin"
	RoleDistributor Role = "distributor"
	RolePlanner     Role = "planner"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleDoctor, RoleAdmin, RoleSuperAdmin, RoleDistributor, RolePlanner:
		return true
	}
	return false
}

// IsAdmin is true for admins and for the super-admin.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// Capability is a bit set of fine-grained admin permissions.
type Capability uint32

const (
	CapPriceUpdate Capability = 1 << iota
	CapCommentUpdate
	CapSpecialComment
	CapPlanner
	CapDistributerAccess

	CapAll = CapPriceUpdate | CapCommentUpdate | CapSpecialComment | CapPlanner | CapDistributerAccess
)

var capabilityNames = map[Capability]string{
	CapPriceUpdate:       "price_update",
	CapCommentUpdate:     "comment_update",
	CapSpecialComment:    "special_comment",
	CapPlanner:           "planner",
	CapDistributerAccess: "distributer_access",
}

// Has reports whether every bit of want is set.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Names returns the sorted names of the set bits.
func (c Capability) Names() []string {
	out := make([]string, 0, len(capabilityNames))
	for bit, name := range capabilityNames {
		if c.Has(bit) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ParseCapabilities converts names into a bit set. Unknown names are
// returned in the second value so callers can reject them.
func ParseCapabilities(names []string) (Capability, []string) {
	var c Capability
	var unknown []string
	for _, n := range names {
		found := false
		for bit, name := range capabilityNames {
			if name == n {
				c |= bit
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, n)
		}
	}
	return c, unknown
}

// User mirrors the `users` table. Doctors, admins, the super-admin and
// planners all live here; distributers have their own table.
type User struct {
	ID            uint64
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	Capabilities  Capability
	DistributerID *uint64 // weak reference, scopes a doctor's cases to a distributer
	IsSuspended   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectiveCapabilities returns the permissions this user actually holds.
// The super-admin holds all of them regardless of the stored bits.
func (u User) EffectiveCapabilities() Capability {
	if u.Role == RoleSuperAdmin {
		return CapAll
	}
	if u.Role != RoleAdmin {
		return 0
	}
	return u.Capabilities
}

// DistributerAccess is the distributer's permission level.
type DistributerAccess string

const (
	AccessView DistributerAccess = "view"
	AccessFull DistributerAccess = "full"
)

func (a DistributerAccess) IsValid() bool { return a == AccessView || a == AccessFull }

// Distributer mirrors the `distributers` table.
type Distributer struct {
	ID           uint64
	Name         string
	Email        string
	PasswordHash string
	Access       DistributerAccess
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubjectKind tells which table a token subject id refers to.
type SubjectKind string

const (
	SubjectUser        SubjectKind = "user"
	SubjectDistributer SubjectKind = "distributer"
)

// Subject identifies the owner of a credential.
type Subject struct {
	Kind SubjectKind
	ID   uint64
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID          uint64
	SubjectKind SubjectKind
	SubjectID   uint64
	TokenHash   string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}
