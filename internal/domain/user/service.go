package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"hishab/internal/shared/auth"
)

// Service contains the business logic for account management
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	params := CreateUserParams{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, params)
}

// Authenticate verifies credentials and returns the matching user.
// Lookup and password failures both map to ErrInvalidCredentials so the
// response does not reveal whether the email is registered.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) Update(ctx context.Context, userID string, params UpdateUserParams) (*User, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.repo.Update(ctx, userID, params)
}

// TouchLastActive records user activity for inactivity-based segmentation.
// Errors are swallowed; activity tracking never fails a request.
func (s *Service) TouchLastActive(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	_ = s.repo.TouchLastActive(ctx, userID, time.Now())
}

// LookupByEmail resolves a user's ID and name for group member invites.
func (s *Service) LookupByEmail(ctx context.Context, email string) (id, name string, err error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	return u.ID, u.Name, nil
}

// DisplayName returns a user's name for notification text.
func (s *Service) DisplayName(ctx context.Context, userID string) (string, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// NotifiableUserIDs returns active users who have not opted out of
// notifications. Used for broadcast segmentation.
func (s *Service) NotifiableUserIDs(ctx context.Context) ([]string, error) {
	return s.repo.NotifiableUserIDs(ctx)
}

// PremiumUserIDs returns users on a premium plan.
func (s *Service) PremiumUserIDs(ctx context.Context) ([]string, error) {
	return s.repo.PremiumUserIDs(ctx)
}
