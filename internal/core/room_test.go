package core

import "testing"

func TestRoomUpsertKeepsJoinOrder(t *testing.T) {
	room := NewRoom("r", true, false)

	if !room.Upsert(&Member{UID: "b", Nickname: "bob"}) {
		t.Fatalf("first insert should be new")
	}
	room.Upsert(&Member{UID: "a", Nickname: "alice"})
	if room.Upsert(&Member{UID: "b", Nickname: "bobby"}) {
		t.Fatalf("overwrite reported as new")
	}

	roster := room.Roster()
	if len(roster) != 2 || roster[0] != (Peer{UID: "b", Nickname: "bobby"}) || roster[1].UID != "a" {
		t.Fatalf("unexpected roster: %+v", roster)
	}

	if !room.Remove("b") || room.Remove("b") {
		t.Fatalf("remove should succeed exactly once")
	}
	if room.Len() != 1 || room.Roster()[0].UID != "a" {
		t.Fatalf("unexpected roster after remove: %+v", room.Roster())
	}
}

func TestDirectoryFiltersRooms(t *testing.T) {
	withMember := func(r *Room, uid string) *Room {
		r.Upsert(&Member{UID: uid})
		return r
	}

	rooms := map[string]*Room{
		"zeta":    withMember(NewRoom("zeta", true, false), "u1"),
		"alpha":   withMember(withMember(NewRoom("alpha", true, false), "u2"), "u3"),
		"private": withMember(NewRoom("private", false, false), "u4"),
		"empty":   NewRoom("empty", true, false),
		"Public":  NewRoom("Public", true, true),
	}

	got := Directory(rooms)
	want := []RoomInfo{{ID: "Public", Count: 0}, {ID: "alpha", Count: 2}, {ID: "zeta", Count: 1}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}
