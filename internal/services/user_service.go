package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/isdelr/ender-accounts/internal/apperrors"
	"github.com/isdelr/ender-accounts/internal/auth"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/isdelr/ender-accounts/internal/store"
	"github.com/rs/zerolog/log"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (string, error)
	GetProfile(ctx context.Context, principal auth.Principal) (models.UserResponse, error)
	ListUsers(ctx context.Context, principal auth.Principal) ([]models.UserResponse, error)
	UpdateUser(ctx context.Context, principal auth.Principal, req models.UpdateUserRequest) (models.UserResponse, error)
	DeleteAccount(ctx context.Context, principal auth.Principal, req models.DeleteAccountRequest) error
}

// UserService provides business logic for user management.
type UserService struct {
	users  store.UserStore
	hasher *auth.PasswordHasher
	tokens *auth.TokenService
	events EventServiceProvider

	dummyOnce sync.Once
	dummyHash string
}

// UserServiceOption customizes a UserService.
type UserServiceOption func(*UserService)

// WithEventLog records account activity through events.
func WithEventLog(events EventServiceProvider) UserServiceOption {
	return func(s *UserService) { s.events = events }
}

// NewUserService creates a new UserService.
func NewUserService(users store.UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenService, opts ...UserServiceOption) *UserService {
	s := &UserService{users: users, hasher: hasher, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordEvent never fails the calling operation.
func (s *UserService) recordEvent(ctx context.Context, eventType, level, message string, userID *int64) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, level, message, userID); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

// Register creates a user with the default USER role.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.ensureUnused(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.OperationFailed(err, "Failed to register user")
	}

	user, err := s.users.Save(ctx, &models.User{
		FullName:     req.FullName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Roles:        []string{models.RoleUser},
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.DuplicateUser("Username or email is already registered.")
		}
		return nil, apperrors.OperationFailed(err, "Failed to register user")
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	s.recordEvent(ctx, models.EventUserRegistered, models.LevelInfo,
		fmt.Sprintf("User '%s' registered.", user.Username), &user.ID)
	return user, nil
}

func (s *UserService) ensureUnused(ctx context.Context, username, email string) error {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return apperrors.DuplicateUser(fmt.Sprintf("Username '%s' is already taken.", username))
	} else if !errors.Is(err, store.ErrNotFound) {
		return apperrors.OperationFailed(err, "Failed to register user")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return apperrors.DuplicateUser(fmt.Sprintf("Email '%s' is already registered.", email))
	} else if !errors.Is(err, store.ErrNotFound) {
		return apperrors.OperationFailed(err, "Failed to register user")
	}
	return nil
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords yield the same error.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return "", apperrors.OperationFailed(err, "Failed to log in")
		}
		// Spend the same bcrypt time as a real comparison.
		_, _ = s.hasher.Verify(req.Password, s.dummy())
		s.recordEvent(ctx, models.EventLoginFailed, models.LevelWarn,
			fmt.Sprintf("Failed login for unknown user '%s'.", req.Username), nil)
		return "", apperrors.InvalidCredentials()
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return "", apperrors.OperationFailed(err, "Failed to log in")
	}
	if !ok {
		s.recordEvent(ctx, models.EventLoginFailed, models.LevelWarn,
			fmt.Sprintf("Failed login for user '%s'.", user.Username), &user.ID)
		return "", apperrors.InvalidCredentials()
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", apperrors.OperationFailed(err, "Failed to generate token")
	}
	s.recordEvent(ctx, models.EventLoginSucceeded, models.LevelInfo,
		fmt.Sprintf("User '%s' logged in.", user.Username), &user.ID)
	return token, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			log.Error().Err(err).Msg("Failed to prepare dummy hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// GetProfile returns the caller's own profile.
func (s *UserService) GetProfile(ctx context.Context, principal auth.Principal) (models.UserResponse, error) {
	if auth.Decide(principal, auth.ViewOwn{}) != auth.Allow {
		return models.UserResponse{}, apperrors.Forbidden("You are not allowed to view this profile.")
	}

	user, err := s.users.FindByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.UserResponse{}, apperrors.NotFound(fmt.Sprintf("User not found with id: %d", principal.ID))
		}
		return models.UserResponse{}, apperrors.OperationFailed(err, "Failed to load profile")
	}
	return user.ToResponse(), nil
}

// ListUsers returns every account. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal auth.Principal) ([]models.UserResponse, error) {
	if auth.Decide(principal, auth.ListAll{}) != auth.Allow {
		return nil, apperrors.Forbidden("Only administrators can list users.")
	}

	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, apperrors.OperationFailed(err, "Failed to list users")
	}
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out, nil
}

// UpdateUser changes full name, email and optionally password of the
// account named in req. The caller must own it or be an admin.
func (s *UserService) UpdateUser(ctx context.Context, principal auth.Principal, req models.UpdateUserRequest) (models.UserResponse, error) {
	if auth.Decide(principal, auth.UpdateUser{Target: req.Username}) != auth.Allow {
		return models.UserResponse{}, apperrors.Forbidden("You are not authorized to update this user.")
	}

	existing, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.UserResponse{}, apperrors.NotFound("User not found with username: " + req.Username)
		}
		return models.UserResponse{}, apperrors.OperationFailed(err, "Failed to update user")
	}

	if req.Email != existing.Email {
		other, err := s.users.FindByEmail(ctx, req.Email)
		switch {
		case err == nil && other.ID != existing.ID:
			return models.UserResponse{}, apperrors.DuplicateUser(fmt.Sprintf("Email '%s' is already registered.", req.Email))
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return models.UserResponse{}, apperrors.OperationFailed(err, "Failed to update user")
		}
	}

	existing.FullName = req.FullName
	existing.Email = req.Email
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return models.UserResponse{}, apperrors.OperationFailed(err, "Failed to update user")
		}
		existing.PasswordHash = hash
	}

	saved, err := s.users.Save(ctx, existing)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.UserResponse{}, apperrors.DuplicateUser(fmt.Sprintf("Email '%s' is already registered.", req.Email))
		}
		return models.UserResponse{}, apperrors.OperationFailed(err, "Failed to update user")
	}

	log.Info().Str("username", saved.Username).Str("by", principal.Username).Msg("User updated")
	s.recordEvent(ctx, models.EventUserUpdated, models.LevelInfo,
		fmt.Sprintf("User '%s' updated by '%s'.", saved.Username, principal.Username), &saved.ID)
	return saved.ToResponse(), nil
}

// DeleteAccount removes the caller's own account after re-checking the
// password and the explicit confirmation flag.
func (s *UserService) DeleteAccount(ctx context.Context, principal auth.Principal, req models.DeleteAccountRequest) error {
	if auth.Decide(principal, auth.DeleteAccount{Target: req.Username}) != auth.Allow {
		return apperrors.Forbidden("You can only delete your own account.")
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("User not found with username: " + req.Username)
		}
		return apperrors.OperationFailed(err, "Failed to delete user")
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return apperrors.OperationFailed(err, "Failed to delete user")
	}
	if !ok {
		return apperrors.Validation("Incorrect password for account deletion.", nil)
	}
	if !req.ConfirmDeletion {
		return apperrors.Validation("Please confirm account deletion by setting 'confirmDeletion' to true.", nil)
	}

	if err := s.users.Delete(ctx, user); err != nil {
		return apperrors.OperationFailed(err, "Failed to delete user")
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User deleted")
	s.recordEvent(ctx, models.EventUserDeleted, models.LevelInfo,
		fmt.Sprintf("User '%s' deleted their account.", user.Username), &user.ID)
	return nil
}

// GrantRole adds role to the named user. Used at startup to promote the
// configured administrators.
func (s *UserService) GrantRole(ctx context.Context, username, role string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("User not found with username: " + username)
		}
		return apperrors.OperationFailed(err, "Failed to grant role")
	}
	if user.HasRole(role) {
		return nil
	}

	user.Roles = append(user.Roles, role)
	if _, err := s.users.Save(ctx, user); err != nil {
		return apperrors.OperationFailed(err, "Failed to grant role")
	}
	log.Info().Str("username", username).Str("role", role).Msg("Role granted")
	s.recordEvent(ctx, models.EventRoleGranted, models.LevelInfo,
		fmt.Sprintf("Role %s granted to '%s'.", role, username), &user.ID)
	return nil
}
