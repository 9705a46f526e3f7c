package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryReplace(t *testing.T) {
	d := NewDirectory()
	d.Upsert("stale", "x", "X")

	src := map[string]map[string]string{
		"main":   {"s1": "Alice", "s2": "Bob"},
		"random": {},
	}
	d.Replace(src)

	assert.False(t, d.HasRoom("stale"))
	assert.Equal(t, []string{"main", "random"}, d.ListRooms())
	assert.Equal(t, map[string]string{"s1": "Alice", "s2": "Bob"}, d.RosterOf("main"))

	// Replace takes a copy
	src["main"]["s3"] = "Carol"
	assert.Len(t, d.RosterOf("main"), 2)
}

func TestDirectoryUpsert(t *testing.T) {
	d := NewDirectory()
	d.Upsert("main", "s1", "Alice")
	d.Upsert("main", "s1", "Alicia")
	d.Upsert("dev", "s1", "Alicia")

	assert.Equal(t, map[string]string{"s1": "Alicia"}, d.RosterOf("main"))
	assert.True(t, d.HasRoom("dev"))
}

func TestDirectoryRemoveSessionKeepsRoom(t *testing.T) {
	d := NewDirectory()
	d.Upsert("main", "s1", "Alice")
	d.RemoveSession("main", "s1")

	assert.True(t, d.HasRoom("main"))
	assert.Empty(t, d.RosterOf("main"))

	// Unknown room is a no-op
	d.RemoveSession("nowhere", "s1")
	assert.False(t, d.HasRoom("nowhere"))
}

func TestDirectoryRemoveRoom(t *testing.T) {
	d := NewDirectory()
	d.Upsert("main", "s1", "Alice")
	d.Upsert("dev", "s1", "Alice")
	d.RemoveRoom("dev")

	assert.Equal(t, []string{"main"}, d.ListRooms())
	d.RemoveRoom("dev")
	assert.Equal(t, []string{"main"}, d.ListRooms())
}

func TestDirectoryRenameEverywhere(t *testing.T) {
	d := NewDirectory()
	d.Replace(map[string]map[string]string{
		"main": {"s1": "Alice", "s2": "Bob"},
		"dev":  {"s1": "Alice"},
		"ops":  {"s2": "Bob"},
	})

	n := d.RenameEverywhere("s1", "Alicia")
	assert.Equal(t, 2, n)
	assert.Equal(t, "Alicia", d.RosterOf("main")["s1"])
	assert.Equal(t, "Alicia", d.RosterOf("dev")["s1"])
	assert.Equal(t, map[string]string{"s2": "Bob"}, d.RosterOf("ops"))

	assert.Equal(t, 0, d.RenameEverywhere("ghost", "Nobody"))
	assert.NotContains(t, d.RosterOf("ops"), "ghost")
}

func TestDirectoryMembersOrdered(t *testing.T) {
	d := NewDirectory()
	d.Upsert("main", "s3", "Carol")
	d.Upsert("main", "s2", "Bob")
	d.Upsert("main", "s1", "Bob")
	d.Upsert("main", "s4", "Alice")

	members := d.Members("main")
	require.Len(t, members, 4)
	assert.Equal(t, []Member{
		{SessionID: "s4", Name: "Alice"},
		{SessionID: "s1", Name: "Bob"},
		{SessionID: "s2", Name: "Bob"},
		{SessionID: "s3", Name: "Carol"},
	}, members)

	assert.Empty(t, d.Members("unknown"))
}

func TestDirectorySnapshotIsDeepCopy(t *testing.T) {
	d := NewDirectory()
	d.Upsert("main", "s1", "Alice")

	snap := d.Snapshot()
	snap["main"]["s1"] = "Mallory"
	snap["extra"] = map[string]string{}

	assert.Equal(t, "Alice", d.RosterOf("main")["s1"])
	assert.False(t, d.HasRoom("extra"))
}
