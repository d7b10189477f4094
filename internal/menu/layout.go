package menu

import (
	"fmt"
	"time"

	"github.com/example/twintray/internal/action"
	"github.com/example/twintray/internal/snapshot"
)

// Keys of the fixed nodes. Resource nodes use "resource:<id>" with child
// suffixes; the keys never encode mutable data, so nodes survive renames.
const (
	keyDegraded = "status:degraded"
	keyUser     = "header:user"
	keySecurity = "header:security"
	keyAdmin    = "header:admin"
	keyState    = "header:state"
	keyCount    = "header:count"
	keySepTop   = "sep:top"
	keySepCtl   = "sep:control"
	keyService  = "control:service"
)

func resourceKey(id string) string { return "resource:" + id }

func resourceChildKey(id, suffix string) string { return "resource:" + id + "/" + suffix }

// Reconcile folds a snapshot change-set into the tree. An empty change-set
// leaves the model untouched and returns no keys; otherwise the desired
// layout for the snapshot is computed and applied in place. The returned keys
// are the nodes that changed; structural additions and removals also surface
// through the key sequence.
func (m *Model) Reconcile(cs snapshot.ChangeSet, snap *snapshot.Snapshot) []string {
	if cs.Empty() {
		return nil
	}
	changed, _ := m.apply(m.desiredLayout(snap))
	return changed
}

// SetDegraded toggles the degraded banner without rebuilding the rest of the
// tree. It returns the changed keys, empty when the flag did not change.
func (m *Model) SetDegraded(degraded bool) []string {
	if m.degraded == degraded {
		return nil
	}
	m.degraded = degraded

	if degraded {
		m.clock++
		banner := &Node{
			Key:      keyDegraded,
			Label:    "Status unavailable",
			Disabled: true,
			version:  m.clock,
		}
		m.nodes = append([]*Node{banner}, m.nodes...)
		m.index[keyDegraded] = banner
		return []string{keyDegraded}
	}

	for i, n := range m.nodes {
		if n.Key == keyDegraded {
			m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
			break
		}
	}
	delete(m.index, keyDegraded)
	return []string{keyDegraded}
}

// desiredLayout computes the full menu for a snapshot. The layout is a pure
// function of the snapshot plus the degraded flag.
func (m *Model) desiredLayout(snap *snapshot.Snapshot) []*Node {
	var nodes []*Node
	if m.degraded {
		nodes = append(nodes, &Node{Key: keyDegraded, Label: "Status unavailable", Disabled: true})
	}
	nodes = append(nodes, userHeader(snap.User))

	if snap.State == snapshot.StateConnected {
		nodes = append(nodes, connectedHeader(snap)...)
		nodes = append(nodes, &Node{Key: keySepTop, Kind: NodeSeparator})

		visible := snap.VisibleResources()
		nodes = append(nodes, &Node{
			Key:      keyCount,
			Label:    resourceCountLabel(len(visible)),
			Disabled: true,
		})
		for _, r := range visible {
			nodes = append(nodes, resourceNode(r))
		}
	} else {
		nodes = append(nodes, &Node{
			Key:      keyState,
			Label:    snap.State.String(),
			Disabled: true,
		})
	}

	nodes = append(nodes,
		&Node{Key: keySepCtl, Kind: NodeSeparator},
		serviceNode(snap.State),
	)
	return nodes
}

func userHeader(u *snapshot.User) *Node {
	label := "Not signed in"
	if u != nil {
		label = u.Email
	}
	return &Node{Key: keyUser, Label: label, Disabled: true}
}

func connectedHeader(snap *snapshot.Snapshot) []*Node {
	var nodes []*Node
	if snap.InternetSecurityMode != 0 {
		nodes = append(nodes, &Node{Key: keySecurity, Label: "Internet Security Enabled", Disabled: true})
	}
	if snap.User != nil && snap.User.IsAdmin && snap.AdminURL != "" {
		nodes = append(nodes, &Node{
			Key:    keyAdmin,
			Label:  "Admin Console...",
			Action: action.Token{Kind: action.KindOpenURL, URL: snap.AdminURL},
		})
	}
	return nodes
}

func resourceCountLabel(n int) string {
	if n == 1 {
		return "1 Resource"
	}
	return fmt.Sprintf("%d Resources", n)
}

// resourceNeedsSubmenu reports whether the resource carries anything beyond
// its name: a browser open, an auth action or an expiry to show.
func resourceNeedsSubmenu(r snapshot.Resource) bool {
	if r.CanOpenInBrowser || r.OpenURL != "" {
		return true
	}
	switch r.AuthState {
	case snapshot.AuthRequired, snapshot.AuthInProgress:
		return true
	case snapshot.AuthOK:
		return r.AuthExpiresAt > 0
	}
	return false
}

// resourceNode builds the node for one resource. Plain resources render as a
// single leaf that copies the address; anything richer becomes a submenu with
// the address line, the copy action, the browser open when available and the
// auth entry for its state.
func resourceNode(r snapshot.Resource) *Node {
	id := r.ID
	if !resourceNeedsSubmenu(r) {
		return &Node{
			Key:     resourceKey(id),
			Label:   r.DisplayName(),
			Tooltip: r.DisplayAddress(),
			Action:  action.Token{Kind: action.KindCopyAddress, ResourceID: id},
		}
	}

	children := []*Node{
		{Key: resourceChildKey(id, "address"), Label: r.DisplayAddress(), Disabled: true},
		{
			Key:    resourceChildKey(id, "copy"),
			Label:  "Copy Address",
			Action: action.Token{Kind: action.KindCopyAddress, ResourceID: id},
		},
	}
	if r.OpenURL != "" {
		children = append(children, &Node{
			Key:    resourceChildKey(id, "open"),
			Label:  "Open in Browser...",
			Action: action.Token{Kind: action.KindOpenURL, ResourceID: id, URL: r.OpenURL},
		})
	}

	switch r.AuthState {
	case snapshot.AuthRequired:
		children = append(children, &Node{
			Key:    resourceChildKey(id, "auth"),
			Label:  "Authenticate...",
			Action: action.Token{Kind: action.KindAuthenticate, ResourceID: id},
		})
	case snapshot.AuthInProgress:
		children = append(children, &Node{
			Key:      resourceChildKey(id, "auth"),
			Label:    "Authenticating...",
			Disabled: true,
		})
	default:
		if r.AuthExpiresAt > 0 {
			children = append(children, &Node{
				Key:      resourceChildKey(id, "expiry"),
				Label:    authExpiryLabel(r.AuthExpiresAt),
				Disabled: true,
			})
		}
	}

	return &Node{
		Key:      resourceKey(id),
		Kind:     NodeSubmenu,
		Label:    r.DisplayName(),
		Tooltip:  r.Address,
		Children: children,
	}
}

// authExpiryLabel renders the time left on a resource authentication. The
// provider reports the expiry as a millisecond timestamp.
func authExpiryLabel(expiresAt int64) string {
	remaining := time.Until(time.UnixMilli(expiresAt))
	days := int(remaining.Hours() / 24)
	switch {
	case days < 1:
		return "Auth expires today"
	case days == 1:
		return "Auth expires in 1 day"
	default:
		return fmt.Sprintf("Auth expires in %d days", days)
	}
}

// serviceNode is the single start/stop control. Its key is constant so the
// widget survives every state transition; only label, enablement and action
// change.
func serviceNode(state snapshot.ConnectionState) *Node {
	n := &Node{Key: keyService}
	switch state {
	case snapshot.StateNotRunning:
		n.Label = "Start"
		n.Action = action.Token{Kind: action.KindStart}
	case snapshot.StateStarting:
		n.Label = "Starting..."
		n.Disabled = true
	case snapshot.StateConnecting:
		n.Label = "Connecting..."
		n.Disabled = true
	case snapshot.StateConnected:
		n.Label = "Stop"
		n.Action = action.Token{Kind: action.KindStop}
	case snapshot.StateAuthRequired:
		n.Label = "Start"
		n.Action = action.Token{Kind: action.KindAuthenticate}
	default:
		n.Label = "Retry"
		n.Action = action.Token{Kind: action.KindStart}
	}
	return n
}
