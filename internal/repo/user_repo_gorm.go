package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go-gin-gorm-accounts/internal/core/errs"
	"go-gin-gorm-accounts/internal/domain"
)

var _ domain.UserRepository = (*UserRepo)(nil)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&domain.User{})
}

func (r *UserRepo) scope(ctx context.Context, includeDeleted bool) *gorm.DB {
	tx := r.db.WithContext(ctx)
	if includeDeleted {
		tx = tx.Unscoped()
	}
	return tx
}

// FindAll 按 id 升序返回；注意：表为空时返回 NotFound，而不是空切片
func (r *UserRepo) FindAll(ctx context.Context, includeDeleted bool) ([]domain.User, error) {
	var users []domain.User
	if err := r.scope(ctx, includeDeleted).Order("id").Find(&users).Error; err != nil {
		return nil, errs.Internal("list users failed", err)
	}
	if len(users) == 0 {
		return nil, errs.NotFound("no users found")
	}
	return users, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint, includeDeleted bool) (*domain.User, error) {
	var u domain.User
	err := r.scope(ctx, includeDeleted).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound(fmt.Sprintf("user %d not found", id))
	}
	if err != nil {
		return nil, errs.Internal("db error", err)
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	var u domain.User
	err := r.scope(ctx, includeDeleted).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound(fmt.Sprintf("user %s not found", email))
	}
	if err != nil {
		return nil, errs.Internal("db error", err)
	}
	return &u, nil
}

// Insert 成功后回填 ID 与时间戳；唯一索引冲突返回 Conflict
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDupKey(err) {
			return errs.Conflict("email already in use")
		}
		return errs.Internal("create user failed", err)
	}
	return nil
}

func (r *UserRepo) UpdateByEmail(ctx context.Context, email string, changes domain.UserChanges) error {
	if changes.Empty() {
		return errs.BadRequest("nothing to update")
	}
	fields := map[string]any{}
	if changes.Name != nil {
		fields["name"] = *changes.Name
	}
	if changes.Password != nil {
		fields["password"] = *changes.Password
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Updates(fields)
	if res.Error != nil {
		return errs.Internal("update user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.BadRequest("failed to update user")
	}
	return nil
}

func (r *UserRepo) SoftDeleteByEmail(ctx context.Context, email string) error {
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&domain.User{})
	if res.Error != nil {
		return errs.Internal("delete user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.BadRequest("failed to delete user; it may already be deleted")
	}
	return nil
}

// RestoreByID 查询 → 条件恢复 → 重新读取，三步不在同一事务内
func (r *UserRepo) RestoreByID(ctx context.Context, id uint) (*domain.User, error) {
	u, err := r.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !u.DeletedAt.Valid {
		return nil, errs.BadRequest("user is already active")
	}

	res := r.db.WithContext(ctx).Unscoped().Model(&domain.User{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return nil, errs.Internal("restore user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.BadRequest("failed to restore user")
	}
	return r.FindByID(ctx, id, false)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
