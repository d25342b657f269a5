package roles

import (
	"context"
	"sync"

	dErrors "polledger/pkg/domain-errors"
)

// ErrRoleNotFound is returned when no role matches the reference.
var ErrRoleNotFound = dErrors.New(dErrors.CodeNotFound, "role not found")

// InMemoryRoleStore holds the role table in process.
type InMemoryRoleStore struct {
	mu     sync.RWMutex
	byID   map[int64]Role
	byName map[string]Role
}

func NewInMemoryRoleStore() *InMemoryRoleStore {
	return &InMemoryRoleStore{
		byID:   make(map[int64]Role),
		byName: make(map[string]Role),
	}
}

// Seed registers a role under both keys.
func (s *InMemoryRoleStore) Seed(role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[role.ID] = role
	s.byName[role.Name] = role
}

func (s *InMemoryRoleStore) ByID(_ context.Context, id int64) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if role, ok := s.byID[id]; ok {
		return role, nil
	}
	return Role{}, ErrRoleNotFound
}

func (s *InMemoryRoleStore) ByName(_ context.Context, name string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if role, ok := s.byName[name]; ok {
		return role, nil
	}
	return Role{}, ErrRoleNotFound
}
