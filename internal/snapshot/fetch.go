package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/twintray/internal/invoker"
	"github.com/example/twintray/internal/logging"
)

// ErrTimeout reports that the provider did not answer within the deadline.
// The previous snapshot must be retained by the caller.
var ErrTimeout = invoker.ErrTimeout

// FieldViolation is a single schema violation in the provider payload.
type FieldViolation struct {
	Field   string
	Message string
}

// SchemaViolationError reports a payload that parsed as JSON but does not
// match the expected provider schema.
type SchemaViolationError struct {
	Violations []FieldViolation
}

func (e *SchemaViolationError) Error() string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "provider payload failed validation: " + strings.Join(fields, "; ")
}

// MalformedOutputError reports provider output that is not parseable at all.
type MalformedOutputError struct {
	Command string
	Detail  string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s produced malformed output: %s", e.Command, e.Detail)
}

// networkPayload mirrors the notifier's JSON document.
type networkPayload struct {
	AdminURL            string `json:"admin_url"`
	FullTunnelTimeLimit int64  `json:"full_tunnel_time_limit"`
	InternetSecurity    struct {
		Mode   int `json:"mode"`
		Status int `json:"status"`
	} `json:"internet_security"`
	Resources []resourcePayload `json:"resources"`
	User      struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		IsAdmin   bool   `json:"is_admin"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user"`
}

type resourcePayload struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Alias            *string `json:"alias"`
	Aliases          []struct {
		Address string `json:"address"`
		OpenURL string `json:"open_url"`
	} `json:"aliases"`
	AuthExpiresAt    int64  `json:"auth_expires_at"`
	AuthState        string `json:"auth_state"`
	CanOpenInBrowser bool   `json:"can_open_in_browser"`
	ClientVisibility int    `json:"client_visibility"`
	OpenURL          string `json:"open_url"`
}

// Fetcher produces snapshots by invoking the status and notifier commands.
// Fetch has no side effects beyond the invocations and is safe to retry.
type Fetcher struct {
	inv         invoker.Invoker
	serviceCmd  string
	notifierCmd string
	now         func() time.Time
}

// NewFetcher wires a Fetcher to the given invoker and command names.
func NewFetcher(inv invoker.Invoker, serviceCmd, notifierCmd string) *Fetcher {
	return &Fetcher{
		inv:         inv,
		serviceCmd:  serviceCmd,
		notifierCmd: notifierCmd,
		now:         time.Now,
	}
}

// Fetch reads the provider state. The status command runs first; only when it
// reports the service as connected is the notifier asked for the full
// resource payload. Status is classified from stdout alone: the client exits
// non-zero for states like not-running, so the exit code only matters when
// the output is unclassifiable. For the notifier, non-empty stderr is a
// failure regardless of exit code.
func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	statusRes, err := f.inv.Invoke(ctx, f.serviceCmd, "status")
	if err != nil {
		return nil, fmt.Errorf("status fetch: %w", err)
	}

	state := ParseStatus(string(statusRes.Stdout))
	if state == StateError && statusRes.ExitCode != 0 {
		return nil, invoker.NewProcessError(f.serviceCmd, statusRes)
	}
	logging.Debugf("provider status classified as %s", state)
	if state != StateConnected {
		return &Snapshot{State: state, FetchedAt: f.now()}, nil
	}

	res, err := f.inv.Invoke(ctx, f.notifierCmd, "resources")
	if err != nil {
		return nil, fmt.Errorf("resource fetch: %w", err)
	}
	if res.ExitCode != 0 || len(bytes.TrimSpace(res.Stderr)) > 0 {
		return nil, invoker.NewProcessError(f.notifierCmd, res)
	}

	snap, err := f.decode(res.Stdout)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *Fetcher) decode(raw []byte) (*Snapshot, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedOutputError{Command: f.notifierCmd, Detail: err.Error()}
	}

	if violations := validateNetworkDoc(doc); len(violations) > 0 {
		return nil, &SchemaViolationError{Violations: violations}
	}

	var payload networkPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &MalformedOutputError{Command: f.notifierCmd, Detail: err.Error()}
	}

	resources := make([]Resource, 0, len(payload.Resources))
	seen := make(map[string]bool, len(payload.Resources))
	for _, p := range payload.Resources {
		if seen[p.ID] {
			return nil, &SchemaViolationError{Violations: []FieldViolation{{
				Field:   "/resources",
				Message: fmt.Sprintf("duplicate resource id %q", p.ID),
			}}}
		}
		seen[p.ID] = true
		resources = append(resources, decodeResource(p))
	}

	user := &User{
		ID:        payload.User.ID,
		Email:     payload.User.Email,
		FirstName: payload.User.FirstName,
		LastName:  payload.User.LastName,
		IsAdmin:   payload.User.IsAdmin,
		AvatarURL: payload.User.AvatarURL,
	}

	return &Snapshot{
		User:                 user,
		Resources:            resources,
		State:                StateConnected,
		InternetSecurityMode: payload.InternetSecurity.Mode,
		AdminURL:             payload.AdminURL,
		FetchedAt:            f.now(),
	}, nil
}

func decodeResource(p resourcePayload) Resource {
	alias := ""
	if p.Alias != nil {
		alias = *p.Alias
	}

	openURL := ""
	if p.CanOpenInBrowser {
		openURL = p.OpenURL
		for _, a := range p.Aliases {
			if a.OpenURL != "" {
				openURL = a.OpenURL
				break
			}
		}
	}

	return Resource{
		ID:               p.ID,
		Name:             p.Name,
		Alias:            alias,
		Address:          p.Address,
		OpenURL:          openURL,
		AuthExpiresAt:    p.AuthExpiresAt,
		AuthState:        decodeAuthState(p.AuthState, p.AuthExpiresAt),
		CanOpenInBrowser: p.CanOpenInBrowser,
		ClientVisibility: p.ClientVisibility,
	}
}

// decodeAuthState maps the provider's free-form auth_state string, falling
// back to the expiry heuristic the provider's own UI uses.
func decodeAuthState(raw string, expiresAt int64) AuthState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "not_required", "none":
		return AuthNotRequired
	case "required":
		return AuthRequired
	case "in_progress", "pending":
		return AuthInProgress
	case "authenticated", "ok":
		return AuthOK
	}
	if expiresAt == 0 {
		return AuthRequired
	}
	return AuthOK
}
