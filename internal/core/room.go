package core

// Member is one uid's presence inside a room.
type Member struct {
	UID      string
	Nickname string
	Client   *Client
}

// Room groups members that may discover and connect to each other.
type Room struct {
	ID        string
	Public    bool
	Permanent bool
	members   map[string]*Member
	order     []string
}

// NewRoom constructs a room with no members.
func NewRoom(id string, public, permanent bool) *Room {
	return &Room{
		ID:        id,
		Public:    public,
		Permanent: permanent,
		members:   make(map[string]*Member),
	}
}

// Upsert inserts a member or overwrites the existing entry for its uid.
// An overwritten member keeps its join position. Returns true if newly added.
func (r *Room) Upsert(m *Member) bool {
	if _, exists := r.members[m.UID]; exists {
		r.members[m.UID] = m
		return false
	}
	r.members[m.UID] = m
	r.order = append(r.order, m.UID)
	return true
}

// Remove deletes a member. Returns true if removed.
func (r *Room) Remove(uid string) bool {
	if _, exists := r.members[uid]; !exists {
		return false
	}
	delete(r.members, uid)
	for i, id := range r.order {
		if id == uid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Member returns the member entry for uid.
func (r *Room) Member(uid string) (*Member, bool) {
	m, ok := r.members[uid]
	return m, ok
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// Empty returns true if no members are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// Roster lists members in join order.
func (r *Room) Roster() []Peer {
	peers := make([]Peer, 0, len(r.order))
	for _, uid := range r.order {
		m := r.members[uid]
		peers = append(peers, Peer{UID: m.UID, Nickname: m.Nickname})
	}
	return peers
}

// Broadcast sends an event to every member's connection.
func (r *Room) Broadcast(event *Event) {
	for _, uid := range r.order {
		r.members[uid].Client.deliver(event)
	}
}
