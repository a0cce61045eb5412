package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/worksreg/internal/repository"
)

// Service resolves free-form identifiers to canonical users.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateRequest defines user creation inputs.
type CreateRequest struct {
	ID          string
	Username    string
	DisplayName string
	Role        Role
	Permissions Permissions
}

// Create registers a user.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, ErrInvalidInput
	}
	switch req.Role {
	case RoleAdmin, RoleApprover, RoleEditor, RoleViewer:
	default:
		return nil, ErrInvalidInput
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	display := req.DisplayName
	if strings.TrimSpace(display) == "" {
		display = req.Username
	}

	u := &User{
		ID:          id,
		Username:    strings.TrimSpace(req.Username),
		DisplayName: display,
		Role:        req.Role,
		Permissions: req.Permissions,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// Get returns a user by canonical ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Resolve maps an id, username or display name to a user.
func (s *Service) Resolve(ctx context.Context, ident string) (*User, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.repo.FindByIdentifier(ctx, ident)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolving user %q: %w", ident, err)
	}
	return u, nil
}

// ListApprovers returns every user holding approval rights.
func (s *Service) ListApprovers(ctx context.Context) ([]User, error) {
	return s.repo.ListApprovers(ctx)
}
