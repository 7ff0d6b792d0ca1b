package store

import (
	"context"
	"errors"

	"wanderwise/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTripNotFound  = errors.New("trip not found")
	ErrDuplicateUser = errors.New("email already registered")
)

// Store owns user credentials and the trips embedded in each user document.
// Trip mutations are scoped to one trip and applied atomically, so concurrent
// writers never overwrite each other's changes.
type Store interface {
	// Credentials
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error

	// Trips
	AppendTrip(ctx context.Context, userID string, trip *models.Trip) error
	// InitChatHistory pushes turn only while the trip's transcript is empty.
	// It reports whether the push happened.
	InitChatHistory(ctx context.Context, userID, tripID string, turn models.Turn) (bool, error)
	AppendTurns(ctx context.Context, userID, tripID string, turns ...models.Turn) error

	Close(ctx context.Context) error
}
