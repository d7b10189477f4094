package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		User:  &User{ID: "u1", Email: "alice@example.com"},
		State: StateConnected,
		Resources: []Resource{
			{ID: "r1", Name: "DB", Address: "db.internal", AuthExpiresAt: 100, AuthState: AuthOK, ClientVisibility: 1},
			{ID: "r2", Name: "Wiki", Address: "wiki.internal", AuthExpiresAt: 100, AuthState: AuthOK, ClientVisibility: 1},
		},
	}
}

func TestDiffFirstFetchBootstraps(t *testing.T) {
	cur := testSnapshot()
	cs := Diff(nil, cur)

	assert.True(t, cs.UserChanged)
	assert.Equal(t, cur.User, cs.User)
	assert.True(t, cs.StateChanged)
	assert.Equal(t, StateConnected, cs.State)
	assert.True(t, cs.BannerChanged)
	require.Len(t, cs.Added, 2)
	assert.Empty(t, cs.Removed)
	assert.Empty(t, cs.Updated)
}

func TestDiffEqualSnapshotsIsEmpty(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()

	cs := Diff(a, b)
	assert.True(t, cs.Empty(), "change-set: %+v", cs)
}

func TestDiffEmptyIffEqual(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.Resources[1].Alias = "Knowledge Base"

	assert.False(t, a.Equal(b))
	assert.False(t, Diff(a, b).Empty())

	b.Resources[1].Alias = ""
	assert.True(t, a.Equal(b))
	assert.True(t, Diff(a, b).Empty())
}

func TestDiffFieldChangeIsUpdateNotRemoveAdd(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.Resources[0].Alias = "Database"
	b.Resources[0].AuthState = AuthRequired
	b.Resources[0].AuthExpiresAt = 0

	cs := Diff(a, b)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Removed)
	require.Len(t, cs.Updated, 1)
	assert.Equal(t, "r1", cs.Updated[0].ID)
	assert.Equal(t, "Database", cs.Updated[0].Resource.Alias)
}

func TestDiffAddAndRemove(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.Resources = []Resource{
		a.Resources[0],
		{ID: "r3", Name: "CI", Address: "ci.internal", ClientVisibility: 1},
	}

	cs := Diff(a, b)
	require.Len(t, cs.Added, 1)
	assert.Equal(t, "r3", cs.Added[0].ID)
	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "r2", cs.Removed[0])
	assert.Empty(t, cs.Updated)
}

func TestDiffUserComparedByValue(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.User = &User{ID: "u1", Email: "alice@example.com", IsAdmin: true}

	cs := Diff(a, b)
	assert.True(t, cs.UserChanged)

	b.User.IsAdmin = false
	cs = Diff(a, b)
	assert.False(t, cs.UserChanged, "equal-by-value users must not report a change")
}

func TestDiffUserSignOut(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.User = nil
	b.State = StateAuthRequired
	b.Resources = nil

	cs := Diff(a, b)
	assert.True(t, cs.UserChanged)
	assert.Nil(t, cs.User)
	assert.True(t, cs.StateChanged)
	assert.Equal(t, StateAuthRequired, cs.State)
	assert.Len(t, cs.Removed, 2)
}

func TestDiffOrderChange(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.Resources[0], b.Resources[1] = b.Resources[1], b.Resources[0]

	cs := Diff(a, b)
	assert.True(t, cs.OrderChanged)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Removed)
	assert.Empty(t, cs.Updated)
	assert.False(t, cs.Empty())
}

func TestDiffDeterministic(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.Resources[0].Name = "Primary DB"
	b.Resources = append(b.Resources, Resource{ID: "r9", Name: "New", ClientVisibility: 1})

	first := Diff(a, b)
	second := Diff(a, b)
	assert.Equal(t, first, second)
}

func TestDiffDoesNotMutateInputs(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.Resources[0].Name = "Changed"

	aCopy := a.Clone()
	bCopy := b.Clone()
	_ = Diff(a, b)

	assert.True(t, a.Equal(aCopy))
	assert.True(t, b.Equal(bCopy))
}
