// Package session tracks who is connected: participant id -> display name,
// per room, in join order.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Room     string    `json:"roomId"`
	Color    string    `json:"color,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`

	seq uint64
}

type Store struct {
	mu    sync.RWMutex
	store map[string]*Participant // id -> participant
	seq   uint64
}

func NewStore() *Store {
	return &Store{store: make(map[string]*Participant)}
}

// Create registers a participant under a fresh id.
func (s *Store) Create(room, name string) Participant {
	p := &Participant{
		ID:       uuid.NewString(),
		Name:     name,
		Room:     room,
		JoinedAt: time.Now(),
	}

	s.mu.Lock()
	s.seq++
	p.seq = s.seq
	s.store[p.ID] = p
	s.mu.Unlock()

	return *p
}

// Update applies fn to the stored participant under the store lock. ID and
// Room are restored afterwards; they identify the entry.
func (s *Store) Update(id string, fn func(*Participant)) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.store[id]
	if !ok {
		return Participant{}, false
	}
	room := p.Room
	fn(p)
	p.ID, p.Room = id, room
	return *p, true
}

func (s *Store) Rename(id, name string) (Participant, bool) {
	return s.Update(id, func(p *Participant) { p.Name = name })
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.store, id)
	s.mu.Unlock()
}

// Rooms groups every participant by room, each list oldest first.
func (s *Store) Rooms() map[string][]Participant {
	s.mu.RLock()
	all := make([]Participant, 0, len(s.store))
	for _, p := range s.store {
		all = append(all, *p)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	rooms := make(map[string][]Participant)
	for _, p := range all {
		rooms[p.Room] = append(rooms[p.Room], p)
	}
	return rooms
}
