// Package snapshot turns the external VPN client's status and resource
// reports into typed, validated snapshots and computes change-sets between
// them.
package snapshot

import "time"

// ConnectionState describes the client service at the time of a fetch.
type ConnectionState int

const (
	StateNotRunning ConnectionState = iota
	StateStarting
	StateConnecting
	StateConnected
	StateAuthRequired
	StateError
)

// String returns a human-readable representation of the connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateNotRunning:
		return "Not running"
	case StateStarting:
		return "Starting..."
	case StateConnecting:
		return "Connecting..."
	case StateConnected:
		return "Connected"
	case StateAuthRequired:
		return "Authentication required"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// AuthState describes a resource's authentication status.
type AuthState int

const (
	AuthNotRequired AuthState = iota
	AuthRequired
	AuthInProgress
	AuthOK
)

// String returns a human-readable representation of the auth state.
func (a AuthState) String() string {
	switch a {
	case AuthNotRequired:
		return "Not required"
	case AuthRequired:
		return "Required"
	case AuthInProgress:
		return "In progress"
	case AuthOK:
		return "Authenticated"
	default:
		return "Unknown"
	}
}

// User is the authenticated identity reported by the provider. Its absence is
// a valid state, never an error.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	IsAdmin   bool
	AvatarURL string
}

// Equal reports field-wise equality, treating two nils as equal.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return *u == *other
}

// Resource is a single protected resource. ID is stable across fetches and is
// the identity used for diffing and menu keys.
type Resource struct {
	ID               string
	Name             string
	Alias            string
	Address          string
	OpenURL          string
	AuthExpiresAt    int64
	AuthState        AuthState
	CanOpenInBrowser bool
	ClientVisibility int
}

// DisplayName returns the alias when present, otherwise the name.
func (r Resource) DisplayName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// DisplayAddress returns the alias when present, otherwise the address.
func (r Resource) DisplayAddress() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Address
}

// Visible reports whether the resource should appear in the menu.
func (r Resource) Visible() bool {
	return r.ClientVisibility != 0
}

// Snapshot is one atomic, validated read of the provider's state. A snapshot
// is either fully valid or the fetch that produced it failed; no partially
// populated snapshot is ever returned.
type Snapshot struct {
	User                 *User
	Resources            []Resource
	State                ConnectionState
	InternetSecurityMode int
	AdminURL             string
	FetchedAt            time.Time
}

// VisibleResources returns the resources to render, in provider order.
func (s *Snapshot) VisibleResources() []Resource {
	out := make([]Resource, 0, len(s.Resources))
	for _, r := range s.Resources {
		if r.Visible() {
			out = append(out, r)
		}
	}
	return out
}

// Resource returns the resource with the given id.
func (s *Snapshot) Resource(id string) (Resource, bool) {
	for _, r := range s.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Equal reports field-wise equality ignoring the fetch timestamp.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.State != other.State ||
		s.InternetSecurityMode != other.InternetSecurityMode ||
		s.AdminURL != other.AdminURL ||
		!s.User.Equal(other.User) ||
		len(s.Resources) != len(other.Resources) {
		return false
	}
	for i := range s.Resources {
		if s.Resources[i] != other.Resources[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	if s.User != nil {
		u := *s.User
		cp.User = &u
	}
	cp.Resources = make([]Resource, len(s.Resources))
	copy(cp.Resources, s.Resources)
	return &cp
}
