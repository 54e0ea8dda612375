package core

import "sort"

// Directory derives the public room listing: every public room that has
// members, plus permanent public rooms even while empty.
func Directory(rooms map[string]*Room) []RoomInfo {
	list := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		if !room.Public {
			continue
		}
		if room.Empty() && !room.Permanent {
			continue
		}
		list = append(list, RoomInfo{ID: room.ID, Count: room.Len()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
