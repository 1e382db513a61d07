package responder

import (
	"sort"
	"sync"

	"main/internal/schema"
)

// Sessions tracks which session currently speaks for each user and which
// sessions belong to each broadcast group. Connection churn is a per-host
// concern: the core's outputs stay deterministic, delivery to whoever is
// connected does not.
type Sessions struct {
	mu     sync.RWMutex
	byUser map[schema.UserID]schema.SessionID
	groups map[schema.GroupID]map[schema.SessionID]struct{}
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		byUser: make(map[schema.UserID]schema.SessionID),
		groups: make(map[schema.GroupID]map[schema.SessionID]struct{}),
	}
}

// Bind associates a user with its current session, replacing any previous
// binding.
func (s *Sessions) Bind(user schema.UserID, session schema.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[user] = session
}

// Unbind drops the user's session binding.
func (s *Sessions) Unbind(user schema.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, user)
}

// SessionFor resolves a user to its bound session.
func (s *Sessions) SessionFor(user schema.UserID) (schema.SessionID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byUser[user]
	return session, ok
}

// Join adds a session to a broadcast group.
func (s *Sessions) Join(group schema.GroupID, session schema.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.groups[group]
	if !ok {
		members = make(map[schema.SessionID]struct{})
		s.groups[group] = members
	}
	members[session] = struct{}{}
}

// Leave removes a session from a broadcast group.
func (s *Sessions) Leave(group schema.GroupID, session schema.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.groups[group]; ok {
		delete(members, session)
	}
}

// Members returns the sessions in a group in ascending id order.
func (s *Sessions) Members(group schema.GroupID) []schema.SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.groups[group]
	if !ok {
		return nil
	}
	out := make([]schema.SessionID, 0, len(members))
	for session := range members {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
