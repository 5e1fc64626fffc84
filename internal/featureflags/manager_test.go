package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))

	first := m.Enabled("canary", 42)
	for range 5 {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0))
}

func TestDefaultsAndOverrides(t *testing.T) {
	assert.False(t, NewManager("").Enabled(CatalogDeleteBlocksApproved, 0))
	assert.True(t, NewManager(" Catalog_Delete_Blocks_Approved = ON ").Enabled(CatalogDeleteBlocksApproved, 0))

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(CatalogDeleteBlocksApproved, 0))
	assert.Empty(t, nilManager.Raw())
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,=on ")

	raw := m.Raw()
	assert.Len(t, raw, 4)
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])
	assert.Equal(t, "off", raw[CatalogDeleteBlocksApproved])

	snap := m.Snapshot(123)
	assert.Len(t, snap, 4)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}
