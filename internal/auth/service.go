// Package auth creates and authenticates accounts. New accounts wait for
// an admin to approve them before they can log in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/db"
	"github.com/Revology-Analytics/revify-portal/internal/models"
	"github.com/Revology-Analytics/revify-portal/internal/security"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPendingApproval    = errors.New("account is pending admin approval")
	ErrUserNotFound       = errors.New("user not found")
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetUserStatus(ctx context.Context, id string, status models.UserStatus) error
	SetUserAdmin(ctx context.Context, id string, isAdmin bool) error
}

type Service struct {
	users  UserStore
	logger *logrus.Entry
	now    func() time.Time
}

func NewService(users UserStore, logger *logrus.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger.WithField("component", "auth"),
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending account.
func (s *Service) Register(ctx context.Context, input models.RegistrationInput) error {
	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Status:       models.UserPendingApproval,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return nil
}

// Login checks credentials. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.ComparePasswords(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.UserApproved {
		return nil, ErrPendingApproval
	}
	return user, nil
}

func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *Service) Approve(ctx context.Context, id string) error {
	err := s.users.SetUserStatus(ctx, id, models.UserApproved)
	if errors.Is(err, db.ErrNotFound) {
		return ErrUserNotFound
	}
	if err == nil {
		s.logger.WithField("user_id", id).Info("user approved")
	}
	return err
}

// EnsureAdmin makes sure an approved admin account exists for email.
// An existing account is promoted; its password is left alone.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	existing, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if err := s.users.SetUserAdmin(ctx, existing.ID, true); err != nil {
			return err
		}
		return s.users.SetUserStatus(ctx, existing.ID, models.UserApproved)
	case !errors.Is(err, db.ErrNotFound):
		return err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		IsAdmin:      true,
		Status:       models.UserApproved,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.WithField("user_id", admin.ID).Info("admin account created")
	return nil
}
