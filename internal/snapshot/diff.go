package snapshot

// ResourceUpdate pairs a resource id with its new value.
type ResourceUpdate struct {
	ID       string
	Resource Resource
}

// ChangeSet is the minimal difference between two snapshots. An empty
// change-set is a valid, common result of a no-op poll cycle.
type ChangeSet struct {
	UserChanged bool
	User        *User

	StateChanged bool
	State        ConnectionState

	// BannerChanged covers the header fields outside the user identity:
	// internet security mode and admin console URL.
	BannerChanged bool

	Added   []Resource
	Removed []string
	Updated []ResourceUpdate

	// OrderChanged reports that surviving resources appear in a different
	// order, with no per-resource field changes implied.
	OrderChanged bool
}

// Empty reports whether applying the change-set would be a no-op.
func (c ChangeSet) Empty() bool {
	return !c.UserChanged && !c.StateChanged && !c.BannerChanged && !c.OrderChanged &&
		len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// Diff computes the change-set between a previous snapshot and the current
// one. It is a pure function: no I/O, no mutation of its inputs, and
// deterministic for the same pair. With a nil previous snapshot everything is
// reported as changed, which bootstraps the menu tree on first fetch.
//
// Resources are matched by id; a resource present in both snapshots with any
// differing field is classified as updated, never as removed plus added, so
// menu-node identity survives field changes.
func Diff(previous, current *Snapshot) ChangeSet {
	cs := ChangeSet{}

	if previous == nil {
		cs.UserChanged = true
		cs.User = current.User
		cs.StateChanged = true
		cs.State = current.State
		cs.BannerChanged = true
		cs.Added = append(cs.Added, current.Resources...)
		return cs
	}

	if !previous.User.Equal(current.User) {
		cs.UserChanged = true
		cs.User = current.User
	}
	if previous.State != current.State {
		cs.StateChanged = true
		cs.State = current.State
	}
	if previous.InternetSecurityMode != current.InternetSecurityMode ||
		previous.AdminURL != current.AdminURL {
		cs.BannerChanged = true
	}

	prevByID := make(map[string]Resource, len(previous.Resources))
	for _, r := range previous.Resources {
		prevByID[r.ID] = r
	}
	curIDs := make(map[string]bool, len(current.Resources))

	for _, r := range current.Resources {
		curIDs[r.ID] = true
		old, ok := prevByID[r.ID]
		switch {
		case !ok:
			cs.Added = append(cs.Added, r)
		case old != r:
			cs.Updated = append(cs.Updated, ResourceUpdate{ID: r.ID, Resource: r})
		}
	}
	for _, r := range previous.Resources {
		if !curIDs[r.ID] {
			cs.Removed = append(cs.Removed, r.ID)
		}
	}

	cs.OrderChanged = survivorOrderChanged(previous.Resources, current.Resources)
	return cs
}

// survivorOrderChanged reports whether the resources present in both
// snapshots occur in a different relative order.
func survivorOrderChanged(prev, cur []Resource) bool {
	curIDs := make(map[string]bool, len(cur))
	for _, r := range cur {
		curIDs[r.ID] = true
	}
	prevIDs := make(map[string]bool, len(prev))
	for _, r := range prev {
		prevIDs[r.ID] = true
	}

	var a, b []string
	for _, r := range prev {
		if curIDs[r.ID] {
			a = append(a, r.ID)
		}
	}
	for _, r := range cur {
		if prevIDs[r.ID] {
			b = append(b, r.ID)
		}
	}

	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}
