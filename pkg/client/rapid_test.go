package client

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func genDirectory() *rapid.Generator[map[string]map[string]string] {
	roster := rapid.MapOf(rapid.SampledFrom([]string{"s1", "s2", "s3", "s4"}), rapid.StringN(1, 6, -1))
	return rapid.MapOf(rapid.SampledFrom([]string{"main", "dev", "ops", "random"}), roster)
}

// TestDirectoryReplaceIsTotal checks that a full list always wins over any prior edits
func TestDirectoryReplaceIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := NewDirectory()
		d.Replace(genDirectory().Draw(t, "before"))
		for i, n := 0, rapid.IntRange(0, 20).Draw(t, "edits"); i < n; i++ {
			d.Upsert(
				rapid.SampledFrom([]string{"main", "x"}).Draw(t, "room"),
				rapid.SampledFrom([]string{"s1", "s9"}).Draw(t, "sid"),
				rapid.String().Draw(t, "name"),
			)
		}

		want := genDirectory().Draw(t, "after")
		d.Replace(want)

		if got := d.Snapshot(); !reflect.DeepEqual(normalize(got), normalize(want)) {
			t.Fatalf("directory %v, want %v", got, want)
		}
	})
}

// TestRenameTouchesOnlyListingRooms checks rename never adds a session to a room
func TestRenameTouchesOnlyListingRooms(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := genDirectory().Draw(t, "dir")
		d := NewDirectory()
		d.Replace(initial)

		sid := rapid.SampledFrom([]string{"s1", "s2", "s3", "s4", "s5"}).Draw(t, "sid")
		name := rapid.String().Draw(t, "name")
		renamed := d.RenameEverywhere(sid, name)

		count := 0
		for room, roster := range initial {
			after := d.RosterOf(room)
			if len(after) != len(roster) {
				t.Fatalf("room %s changed size", room)
			}
			if _, ok := roster[sid]; ok {
				count++
				if after[sid] != name {
					t.Fatalf("room %s not renamed", room)
				}
			} else if _, ok := after[sid]; ok {
				t.Fatalf("room %s gained %s", room, sid)
			}
		}
		if count != renamed {
			t.Fatalf("renamed %d rooms, reported %d", count, renamed)
		}
	})
}

// TestQueueDismissIdempotent checks that dismiss only ever removes the named notice
func TestQueueDismissIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := NewNotificationQueue(&fakeScheduler{}, func(uuid.UUID) {})
		var ids []uuid.UUID
		for i, n := 0, rapid.IntRange(1, 10).Draw(t, "n"); i < n; i++ {
			ids = append(ids, q.Push(Info("x")))
		}

		target := rapid.SampledFrom(ids).Draw(t, "target")
		if !q.Dismiss(target) {
			t.Fatalf("first dismiss of present id returned false")
		}
		before := q.Items()
		if q.Dismiss(target) {
			t.Fatalf("second dismiss returned true")
		}
		if !reflect.DeepEqual(before, q.Items()) {
			t.Fatalf("second dismiss changed the queue")
		}
		if q.Len() != len(ids)-1 {
			t.Fatalf("len %d, want %d", q.Len(), len(ids)-1)
		}
	})
}

// normalize maps nil rosters to empty ones so DeepEqual compares content
func normalize(dir map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(dir))
	for room, roster := range dir {
		r := make(map[string]string, len(roster))
		for k, v := range roster {
			r[k] = v
		}
		out[room] = r
	}
	return out
}
