package client

import (
	"sort"
)

// Directory is the client-side cache of room membership:
// room -> session id -> display name.
//
// Directory is not safe for concurrent use; the Controller serializes access.
type Directory struct {
	rooms map[string]map[string]string
}

// Member is one roster entry
type Member struct {
	SessionID string
	Name      string
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[string]string)}
}

// Replace discards the current directory and installs a copy of rooms.
func (d *Directory) Replace(rooms map[string]map[string]string) {
	next := make(map[string]map[string]string, len(rooms))
	for room, roster := range rooms {
		copied := make(map[string]string, len(roster))
		for sid, name := range roster {
			copied[sid] = name
		}
		next[room] = copied
	}
	d.rooms = next
}

// Upsert inserts or overwrites one roster entry, creating the room if needed.
func (d *Directory) Upsert(room, sessionID, name string) {
	roster, ok := d.rooms[room]
	if !ok {
		roster = make(map[string]string)
		d.rooms[room] = roster
	}
	roster[sessionID] = name
}

// RemoveSession removes one roster entry. The room key stays even if the
// roster becomes empty.
func (d *Directory) RemoveSession(room, sessionID string) {
	if roster, ok := d.rooms[room]; ok {
		delete(roster, sessionID)
	}
}

// RemoveRoom drops the room and its whole roster.
func (d *Directory) RemoveRoom(room string) {
	delete(d.rooms, room)
}

// RenameEverywhere overwrites the display name of sessionID in every room
// that lists it. Rooms that don't list it are untouched.
func (d *Directory) RenameEverywhere(sessionID, name string) int {
	renamed := 0
	for _, roster := range d.rooms {
		if _, ok := roster[sessionID]; ok {
			roster[sessionID] = name
			renamed++
		}
	}
	return renamed
}

// HasRoom reports whether room is listed
func (d *Directory) HasRoom(room string) bool {
	_, ok := d.rooms[room]
	return ok
}

// ListRooms returns room names in sorted order so repeated renders are stable.
func (d *Directory) ListRooms() []string {
	rooms := make([]string, 0, len(d.rooms))
	for room := range d.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// RosterOf returns a copy of the roster for room (empty if unknown).
func (d *Directory) RosterOf(room string) map[string]string {
	roster := d.rooms[room]
	copied := make(map[string]string, len(roster))
	for sid, name := range roster {
		copied[sid] = name
	}
	return copied
}

// Members returns the roster of room ordered by name, then session id.
func (d *Directory) Members(room string) []Member {
	roster := d.rooms[room]
	members := make([]Member, 0, len(roster))
	for sid, name := range roster {
		members = append(members, Member{SessionID: sid, Name: name})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].SessionID < members[j].SessionID
	})
	return members
}

// Snapshot returns a deep copy of the whole directory.
func (d *Directory) Snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string, len(d.rooms))
	for room := range d.rooms {
		out[room] = d.RosterOf(room)
	}
	return out
}
