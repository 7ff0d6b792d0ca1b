package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wanderwise/models"
	"wanderwise/store"
	apierrors "wanderwise/utils/errors"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

// dummyHash is compared against when the email is unknown so both login
// failures cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("wanderwise-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

var compareHash = bcrypt.CompareHashAndPassword

type AuthService struct {
	store  store.Store
	tokens *TokenService
	logger *zap.Logger
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
}

func NewAuthService(s store.Store, tokens *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{store: s, tokens: tokens, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	switch {
	case name == "":
		return apierrors.Validation("Name is required")
	case !emailPattern.MatchString(email):
		return apierrors.Validation("Please provide a valid email address")
	case len(password) < minPasswordLength:
		return apierrors.Validation("Password must be at least 6 characters")
	case len(password) > 72:
		return apierrors.Validation("Password must be at most 72 bytes")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apierrors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Trips:        []models.Trip{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return apierrors.NewAPIError(apierrors.ErrConflict.Code, "Email is already registered", http.StatusConflict)
		}
		return apierrors.Persistence(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return nil
}

// Login authenticates a user and returns an access and refresh token pair.
// Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = compareHash(dummyHash(), []byte(password))
			return nil, apierrors.ErrAuth
		}
		return nil, apierrors.Persistence(err)
	}

	if err := compareHash([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apierrors.ErrAuth
	}

	accessToken, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, apierrors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	refreshToken, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, apierrors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	if err := s.store.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, apierrors.Persistence(err)
	}

	return &Session{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Renew exchanges a stored, valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *AuthService) Renew(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apierrors.NewAPIError(apierrors.ErrUnauthorized.Code, "Unauthorized", http.StatusUnauthorized)
	}
	user, err := s.store.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", apierrors.NewAPIError(apierrors.ErrInvalidAuth.Code, "Invalid refresh token", http.StatusForbidden)
		}
		return "", apierrors.Persistence(err)
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil || claims.Subject != user.ID {
		return "", apierrors.ErrInvalidAuth
	}

	accessToken, err := s.tokens.IssueAccess(user)
	if err != nil {
		return "", apierrors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return accessToken, nil
}

// Logout revokes the stored refresh token. The refresh cookie is scoped to
// the renewal path, so a browser logout usually presents only the access
// token; either identifies the user. Unknown or invalid tokens are ignored
// and logout always succeeds from the client's view.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	userID := ""
	switch {
	case refreshToken != "":
		user, err := s.store.GetUserByRefreshToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return nil
			}
			return apierrors.Persistence(err)
		}
		userID = user.ID
	case accessToken != "":
		claims, err := s.tokens.VerifyAccess(accessToken)
		if err != nil {
			return nil
		}
		userID = claims.Subject
	default:
		return nil
	}

	if err := s.store.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return apierrors.Persistence(err)
	}
	s.logger.Info("refresh token revoked", zap.String("user_id", userID))
	return nil
}
