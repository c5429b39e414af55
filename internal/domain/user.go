package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User 用户表；Password 只存 bcrypt 哈希
type User struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	Name      string         `gorm:"size:64;not null"`
	Email     string         `gorm:"uniqueIndex;size:191;not null"`
	Password  string         `gorm:"size:100;not null" json:"-"`
	Role      Role           `gorm:"size:16;not null;default:USER"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string { return "users" }

// UserResponse 对外输出，不含密码
type UserResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

func NewUserResponse(u *User) UserResponse {
	out := UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.DeletedAt.Valid {
		t := u.DeletedAt.Time
		out.DeletedAt = &t
	}
	return out
}

func NewUserResponses(us []User) []UserResponse {
	out := make([]UserResponse, 0, len(us))
	for i := range us {
		out = append(out, NewUserResponse(&us[i]))
	}
	return out
}

// UserChanges 部分更新，nil 字段不改；Password 须已哈希
type UserChanges struct {
	Name     *string
	Password *string
}

func (c UserChanges) Empty() bool { return c.Name == nil && c.Password == nil }

type UserRepository interface {
	FindAll(ctx context.Context, includeDeleted bool) ([]User, error)
	FindByID(ctx context.Context, id uint, includeDeleted bool) (*User, error)
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error)
	Insert(ctx context.Context, u *User) error
	UpdateByEmail(ctx context.Context, email string, changes UserChanges) error
	SoftDeleteByEmail(ctx context.Context, email string) error
	RestoreByID(ctx context.Context, id uint) (*User, error)
}
