package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/ledger"
	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

type userDirectory struct {
	repo      repositories.Repository
	ledger    *ledger.Ledger
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	policy    RegistrationPolicy
}

func NewUserDirectory(repo repositories.Repository, l *ledger.Ledger, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator, policy RegistrationPolicy) UserDirectory {
	if policy == "" {
		policy = PolicyOverwrite
	}
	return &userDirectory{
		repo:      repo,
		ledger:    l,
		publisher: publisher,
		logger:    logger,
		validator: v,
		policy:    policy,
	}
}

func (s *userDirectory) RegisterUser(ctx context.Context, identity string, req *RegisterUserRequest) (*UserResponse, error) {
	s.logger.Info("Registering user", "identity", identity, "is_lecturer", req.IsLecturer)

	if !validator.ValidIdentity(identity) {
		return nil, newFieldError("identity", "must be a non-blank identity without surrounding whitespace", identity)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, NewValidationError(err)
	}

	var (
		resp    *UserResponse
		created bool
	)
	err := s.ledger.Submit(ctx, "register_user", func(ctx context.Context) error {
		resp, created = nil, false
		return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			existing, err := tx.User().GetByIdentity(ctx, identity)
			if err != nil && !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to get user: %w", err)
			}

			now := time.Now().UTC()
			user := &models.User{
				Identity:    identity,
				DisplayName: req.DisplayName,
				Bio:         req.Bio,
				IsLecturer:  req.IsLecturer,
				Extra:       req.Extra,
				CreatedAt:   now,
				UpdatedAt:   now,
			}

			var owned int64
			if existing != nil {
				owned, err = tx.Course().CountByOwner(ctx, identity)
				if err != nil {
					return fmt.Errorf("failed to count owned courses: %w", err)
				}
				if err := s.policy.check(existing, req.IsLecturer, owned); err != nil {
					return err
				}
				user.CreatedAt = existing.CreatedAt
			}

			if err := tx.User().Save(ctx, user); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}

			created = existing == nil
			resp = buildUserResponse(user, owned)
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("User registration failed", "identity", identity, "kind", KindOf(err), "error", err)
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, models.EventUserRegistered, models.UserRegisteredData{
		Identity:   identity,
		IsLecturer: resp.IsLecturer,
		Created:    created,
	})

	s.logger.Info("User registered", "identity", identity, "role", resp.Role, "created", created)
	return resp, nil
}

func (s *userDirectory) IsLecturer(ctx context.Context, identity string) (bool, error) {
	user, err := s.repo.User().GetByIdentity(ctx, identity)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user.IsLecturer, nil
}

func (s *userDirectory) GetUser(ctx context.Context, identity string) (*UserResponse, error) {
	user, err := s.repo.User().GetByIdentity(ctx, identity)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	owned, err := s.repo.Course().CountByOwner(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to count owned courses: %w", err)
	}
	return buildUserResponse(user, owned), nil
}

func (s *userDirectory) ListUsers(ctx context.Context, filters repositories.UserFilters) ([]*UserResponse, error) {
	users, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		owned, err := s.repo.Course().CountByOwner(ctx, u.Identity)
		if err != nil {
			return nil, fmt.Errorf("failed to count owned courses: %w", err)
		}
		out = append(out, buildUserResponse(u, owned))
	}
	return out, nil
}

func buildUserResponse(u *models.User, owned int64) *UserResponse {
	return &UserResponse{User: u, Role: u.Role(), OwnedCourses: owned}
}
