// Package memstore is an in-process Store used by tests and by
// STORE_BACKEND=memory for local development.
package memstore

import (
	"context"
	"encoding/json"
	"sync"

	"wanderwise/models"
	"wanderwise/store"
)

type MemStore struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	byEmail map[string]string
}

var _ store.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return store.ErrDuplicateUser
	}
	s.byID[user.ID] = clone(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemStore) GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return nil, store.ErrUserNotFound
	}
	for _, u := range s.byID {
		if u.RefreshToken == token {
			return clone(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *MemStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.RefreshToken = token
	return nil
}

func (s *MemStore) AppendTrip(ctx context.Context, userID string, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	var cp models.Trip
	if err := deepCopy(trip, &cp); err != nil {
		return err
	}
	u.Trips = append(u.Trips, cp)
	u.ActiveTripID = trip.ID
	return nil
}

func (s *MemStore) InitChatHistory(ctx context.Context, userID, tripID string, turn models.Turn) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, err := s.trip(userID, tripID)
	if err != nil {
		return false, err
	}
	if len(trip.ChatHistory) > 0 {
		return false, nil
	}
	trip.ChatHistory = append(trip.ChatHistory, turn)
	return true, nil
}

func (s *MemStore) AppendTurns(ctx context.Context, userID, tripID string, turns ...models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, err := s.trip(userID, tripID)
	if err != nil {
		return err
	}
	trip.ChatHistory = append(trip.ChatHistory, turns...)
	return nil
}

func (s *MemStore) Close(ctx context.Context) error { return nil }

func (s *MemStore) trip(userID, tripID string) (*models.Trip, error) {
	u, ok := s.byID[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	t := u.FindTrip(tripID)
	if t == nil {
		return nil, store.ErrTripNotFound
	}
	return t, nil
}

// clone hands callers their own copy so that mutating a returned user never
// reaches the stored one, matching a database round trip.
func clone(u *models.User) *models.User {
	var cp models.User
	if err := deepCopy(u, &cp); err != nil {
		panic(err)
	}
	cp.PasswordHash = u.PasswordHash
	cp.RefreshToken = u.RefreshToken
	return &cp
}

func deepCopy(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
