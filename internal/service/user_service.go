package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"accessdesk/internal/authz"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users    repository.UserRepository
	hashCost int
	compare  func(hash, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

type CreateUserInput struct {
	Username string
	Password string
	Role     string
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users, hashCost: bcrypt.DefaultCost, compare: bcrypt.CompareHashAndPassword}
}

// WithHashCost overrides the bcrypt cost for bulk provisioning.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

// Signup registers a self-service account. Public signup always yields an
// Employee; other roles are assigned by an admin through CreateUser.
func (s *UserService) Signup(ctx context.Context, username, password string) (*models.User, error) {
	return s.register(ctx, username, password, models.RoleEmployee)
}

// Authenticate checks credentials. Unknown users and wrong passwords fail the
// same way and both pay for one bcrypt comparison.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			_ = s.compare(s.unknownUserHash(), []byte(password))
			return nil, models.NewUnauthorizedError("invalid credentials")
		}
		return nil, err
	}
	if err := s.compare([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, actor models.Actor) (*models.User, error) {
	return s.users.GetByID(ctx, actor.ID)
}

func (s *UserService) ChangePassword(ctx context.Context, actor models.Actor, current, next string) error {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := s.compare([]byte(user.Password), []byte(current)); err != nil {
		return models.NewUnauthorizedError("current password is incorrect")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	slog.InfoContext(ctx, "password changed", slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, actor models.Actor) ([]*models.User, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionListUsers); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *UserService) GetUser(ctx context.Context, actor models.Actor, id uint) (*models.User, error) {
	if _, err := authz.Authorize(actor, id, authz.ActionViewUser); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// CreateUser adds a user with an explicit role. The role cannot be changed afterwards.
func (s *UserService) CreateUser(ctx context.Context, actor models.Actor, in CreateUserInput) (*models.User, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionCreateUser); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	return s.register(ctx, in.Username, in.Password, role)
}

// Provision creates a user outside any request context, for CLIs and dev bootstrap.
func (s *UserService) Provision(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	return s.register(ctx, username, password, role)
}

func (s *UserService) register(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if !role.Valid() {
		return nil, models.NewValidationError("invalid role")
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Password: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user created", slog.Uint64("user_id", uint64(user.ID)), slog.String("role", string(role)))
	return user, nil
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(b), nil
}

// unknownUserHash is compared against when a login names no account.
func (s *UserService) unknownUserHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("accessdesk-unknown-user"), s.hashCost)
	})
	return s.dummyHash
}
