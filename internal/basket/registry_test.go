package basket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basket-go/internal/basket"
	"basket-go/internal/testutil"
)

func newTestRegistry(t *testing.T) (*basket.Registry, basket.Database) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	return basket.NewRegistry(db, testutil.FixedClock(), testutil.NewStubIDGenerator()), db
}

func TestRegistry_CreateAndLoad(t *testing.T) {
	registry, _ := newTestRegistry(t)

	created, err := registry.Create("ops", "user", "admin", basket.Coverage{"HostTemplate": basket.AllObjects()})
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.ID)

	loaded, err := registry.Load("ops")
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "user", loaded.OwnerType)
	assert.Equal(t, "admin", loaded.OwnerValue)
	assert.True(t, loaded.Objects["HostTemplate"].All)
}

func TestRegistry_LoadMissing(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Load("nope")
	assert.ErrorIs(t, err, basket.ErrNotFound)
}

func TestRegistry_CreateValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.Create("ops", "user", "admin", nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		basketName string
		ownerType  string
		coverage   basket.Coverage
	}{
		{name: "duplicate name", basketName: "ops", ownerType: "user"},
		{name: "empty name", basketName: "", ownerType: "user"},
		{name: "missing owner", basketName: "other", ownerType: ""},
		{name: "unknown type", basketName: "other", ownerType: "user", coverage: basket.Coverage{"Widget": basket.AllObjects()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Create(tt.basketName, tt.ownerType, "admin", tt.coverage)
			assert.ErrorIs(t, err, basket.ErrValidation)
		})
	}

	names, err := registry.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, names)
}

func TestRegistry_AddObjectNamesPersists(t *testing.T) {
	registry, _ := newTestRegistry(t)
	b, err := registry.Create("ops", "user", "admin", basket.Coverage{
		"Command":      basket.NamedObjects("check_http"),
		"HostTemplate": basket.AllObjects(),
	})
	require.NoError(t, err)

	require.NoError(t, registry.AddObjectNames(b, "Command", []string{"check_disk"}))
	require.NoError(t, registry.AddObjectNames(b, "HostTemplate", []string{"generic-host"}))
	require.NoError(t, registry.AddObjectNames(b, basket.DatafieldType, []string{"1"}))

	loaded, err := registry.Load("ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"check_disk", "check_http"}, loaded.Objects["Command"].Names)
	assert.True(t, loaded.Objects["HostTemplate"].All)
	assert.NotContains(t, loaded.Objects, basket.DatafieldType)

	err = registry.AddObjectNames(b, "Widget", []string{"x"})
	assert.ErrorIs(t, err, basket.ErrValidation)
}

func TestRegistry_ListAllSorted(t *testing.T) {
	registry, _ := newTestRegistry(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := registry.Create(name, "user", "admin", nil)
		require.NoError(t, err)
	}

	names, err := registry.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}
