package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"go-gin-gorm-accounts/internal/domain"
)

type UpdateInput struct {
	Name     *string
	Password *string
}

type UserService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	log    *zap.Logger
}

func NewUserService(users domain.UserRepository, hasher PasswordHasher, log *zap.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, log: log}
}

// Everything 全部用户，包含已软删
func (s *UserService) Everything(ctx context.Context) ([]domain.User, error) {
	return s.users.FindAll(ctx, true)
}

func (s *UserService) Me(ctx context.Context, email string) (*domain.User, error) {
	return s.users.FindByEmail(ctx, email, false)
}

func (s *UserService) Restore(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.users.RestoreByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("user restored", zap.Uint("id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// Update 只能改自己的 name / password
func (s *UserService) Update(ctx context.Context, email string, in UpdateInput) error {
	var changes domain.UserChanges
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		changes.Name = &name
	}
	if in.Password != nil {
		hashed, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return hashError(err)
		}
		changes.Password = &hashed
	}
	if err := s.users.UpdateByEmail(ctx, email, changes); err != nil {
		return err
	}
	s.log.Info("user updated", zap.String("email", email), zap.Bool("password_changed", in.Password != nil))
	return nil
}

func (s *UserService) Remove(ctx context.Context, email string) error {
	if err := s.users.SoftDeleteByEmail(ctx, email); err != nil {
		return err
	}
	s.log.Info("user soft-deleted", zap.String("email", email))
	return nil
}
