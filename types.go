package clientcore

import (
	"encoding/json"
	"time"
)

// Role classifies a profile for authorization checks.
type Role string

const (
	// RoleAdmin grants every permission implicitly.
	RoleAdmin Role = "admin"
	// RoleUser is the default role; authorization follows the permission set.
	RoleUser Role = "user"
)

// PermissionAll is the literal permission that grants everything, regardless
// of role.
const PermissionAll = "all"

// UserProfile describes an authenticated identity. It is written once at
// login and read-only thereafter.
type UserProfile struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"name"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the profile authorizes perm. RoleAdmin and the
// literal "all" permission authorize everything.
func (p UserProfile) HasPermission(perm string) bool {
	if p.Role == RoleAdmin {
		return true
	}
	for _, have := range p.Permissions {
		if have == PermissionAll || have == perm {
			return true
		}
	}
	return false
}

func marshalProfile(p UserProfile) ([]byte, error) {
	return json.Marshal(p)
}

func unmarshalProfile(payload []byte, p *UserProfile) error {
	return json.Unmarshal(payload, p)
}

// SessionState is the lifecycle position of the current session.
type SessionState uint8

const (
	// StateAnonymous means no persisted session exists.
	StateAnonymous SessionState = iota
	// StateAuthenticated means a valid session exists outside the warning band.
	StateAuthenticated
	// StateExpiring means the session is inside the warning window before TTL.
	StateExpiring
	// StateExpired means the session exceeded its TTL or failed to decode.
	StateExpired
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiring:
		return "expiring"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is derived on demand from the persisted token and profile; it has no
// independent storage.
type Session struct {
	Subject  string
	IssuedAt time.Time
	User     UserProfile
}

// ActivityKind classifies a security-relevant event.
type ActivityKind string

const (
	// ActivityLogin records a successful login.
	ActivityLogin ActivityKind = "login"
	// ActivityLogout records an explicit or forced logout.
	ActivityLogout ActivityKind = "logout"
	// ActivityFailedLogin records a rejected login attempt.
	ActivityFailedLogin ActivityKind = "failed_login"
	// ActivitySensitiveOperation records an operation the caller flagged as
	// sensitive.
	ActivitySensitiveOperation ActivityKind = "sensitive_operation"
)

// ActivityRecord is one entry in the bounded activity log.
type ActivityRecord struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Kind      ActivityKind `json:"kind"`
	Message   string       `json:"message"`
	Actor     string       `json:"actor"`
	Origin    string       `json:"origin"`
}

// Directory resolves a username to its profile. Identity provisioning is a
// collaborator concern; the Manager only consumes the resolved profile.
type Directory interface {
	Resolve(username string) (UserProfile, error)
}

// StaticDirectory is an in-memory Directory for deployments without an
// external identity source. Unknown usernames resolve to a view-only profile,
// matching the legacy behavior of the internal dashboard.
type StaticDirectory struct {
	profiles map[string]UserProfile
}

// NewStaticDirectory copies the given profiles, keyed by username.
func NewStaticDirectory(profiles []UserProfile) *StaticDirectory {
	d := &StaticDirectory{profiles: make(map[string]UserProfile, len(profiles))}
	for _, p := range profiles {
		d.profiles[p.Username] = p
	}
	return d
}

// Resolve returns the registered profile, or a default view-only user profile
// for unknown usernames.
func (d *StaticDirectory) Resolve(username string) (UserProfile, error) {
	if p, ok := d.profiles[username]; ok {
		return p, nil
	}
	return UserProfile{
		Username:    username,
		DisplayName: username,
		Role:        RoleUser,
		Permissions: []string{"view"},
	}, nil
}

// DefaultDirectory mirrors the static directory baked into the legacy
// dashboard deployment.
func DefaultDirectory() *StaticDirectory {
	return NewStaticDirectory([]UserProfile{
		{Username: "admin", DisplayName: "General Manager", Role: RoleAdmin, Permissions: []string{PermissionAll}},
		{Username: "user1", DisplayName: "Mohammed Ahmed", Role: RoleUser, Permissions: []string{"view", "add", "edit"}},
		{Username: "user2", DisplayName: "Ali Mahmoud", Role: RoleUser, Permissions: []string{"view"}},
	})
}
