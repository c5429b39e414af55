package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-gin-gorm-accounts/internal/domain"
)

// MockUserRepo implements domain.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindAll(ctx context.Context, includeDeleted bool) ([]domain.User, error) {
	args := m.Called(ctx, includeDeleted)
	us, _ := args.Get(0).([]domain.User)
	return us, args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id uint, includeDeleted bool) (*domain.User, error) {
	args := m.Called(ctx, id, includeDeleted)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	args := m.Called(ctx, email, includeDeleted)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) Insert(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepo) UpdateByEmail(ctx context.Context, email string, changes domain.UserChanges) error {
	return m.Called(ctx, email, changes).Error(0)
}

func (m *MockUserRepo) SoftDeleteByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserRepo) RestoreByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}
