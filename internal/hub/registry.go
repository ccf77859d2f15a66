// Package hub tracks which sessions are in which room and delivers
// events to them.
package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/session"
)

type room struct {
	sessions  map[string]*session.Session // session id
	users     map[string]*session.Session // user id, latest connection wins
	createdAt time.Time
}

// RoomStats live room summary for operators
type RoomStats struct {
	RoomID    string    `json:"roomId"`
	Sessions  int       `json:"sessions"`
	Users     []string  `json:"users"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registry room → sessions. Empty rooms are removed.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Add registers s in roomID under its current user id. It reports whether the room was created.
func (r *Registry) Add(roomID string, s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{
			sessions:  make(map[string]*session.Session),
			users:     make(map[string]*session.Session),
			createdAt: time.Now(),
		}
		r.rooms[roomID] = rm
		log.Info().Str("module", "hub.registry").Str("room", roomID).Msg("created room")
	}
	rm.sessions[s.ID] = s
	if uid := s.UserID(); uid != "" {
		rm.users[uid] = s
	}
	return !ok
}

// Remove unregisters s from roomID. It reports whether the room was garbage-collected.
func (r *Registry) Remove(roomID string, s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	delete(rm.sessions, s.ID)
	for uid, cur := range rm.users {
		if cur == s {
			delete(rm.users, uid)
			// another connection of the same user keeps the mapping
			for _, other := range rm.sessions {
				if other.UserID() == uid {
					rm.users[uid] = other
					break
				}
			}
		}
	}

	if len(rm.sessions) == 0 {
		delete(r.rooms, roomID)
		log.Info().Str("module", "hub.registry").Str("room", roomID).Msg("removed empty room")
		return true
	}
	return false
}

// Members sessions currently in roomID
func (r *Registry) Members(roomID string) []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*session.Session, 0, len(rm.sessions))
	for _, s := range rm.sessions {
		out = append(out, s)
	}
	return out
}

// Lookup resolves userID to its session inside roomID.
func (r *Registry) Lookup(roomID, userID string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	s, ok := rm.users[userID]
	return s, ok
}

// Users distinct user ids present in roomID, sorted
func (r *Registry) Users(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return []string{}
	}
	return sortedUsers(rm)
}

// HasUser reports whether another connection of userID is still in roomID.
func (r *Registry) HasUser(roomID, userID string) bool {
	_, ok := r.Lookup(roomID, userID)
	return ok
}

// HasRoom reports whether roomID has any session.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

// Rooms stats for every live room, sorted by id
func (r *Registry) Rooms() []RoomStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomStats, 0, len(r.rooms))
	for id, rm := range r.rooms {
		out = append(out, RoomStats{
			RoomID:    id,
			Sessions:  len(rm.sessions),
			Users:     sortedUsers(rm),
			CreatedAt: rm.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func sortedUsers(rm *room) []string {
	users := make([]string, 0, len(rm.users))
	for uid := range rm.users {
		users = append(users, uid)
	}
	sort.Strings(users)
	return users
}
