package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-gin-gorm-accounts/internal/core/errs"
	"go-gin-gorm-accounts/internal/domain"
	"go-gin-gorm-accounts/pkg/utils"
)

// ErrBadCredentials 邮箱不存在与密码错误返回同一个错误，防止枚举账号
var ErrBadCredentials = errs.Unauthorized("check your email or password")

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(pw, hashed string) bool
}

type TokenIssuer interface {
	Issue(email string, role domain.Role) (string, error)
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role // 为空时默认 USER
}

type AuthService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	log    *zap.Logger

	// 邮箱不存在时也比对一次，两条失败路径耗时一致
	dummyHash string
}

func NewAuthService(users domain.UserRepository, hasher PasswordHasher, tokens TokenIssuer, log *zap.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log, dummyHash: dummy}, nil
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		signupTotal.WithLabelValues("invalid").Inc()
		return nil, errs.BadRequest("role must be USER or ADMIN")
	}

	_, err := s.users.FindByEmail(ctx, email, true)
	switch {
	case err == nil:
		signupTotal.WithLabelValues("conflict").Inc()
		return nil, errs.Conflict("email already in use")
	case !errs.IsNotFound(err):
		signupTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		err = hashError(err)
		if errs.Is(err, http.StatusBadRequest) {
			signupTotal.WithLabelValues("invalid").Inc()
		} else {
			signupTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	u := &domain.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hashed,
		Role:     role,
	}
	// 并发注册同一邮箱时由唯一索引兜底，Insert 返回 Conflict
	if err := s.users.Insert(ctx, u); err != nil {
		if errs.IsConflict(err) {
			signupTotal.WithLabelValues("conflict").Inc()
		} else {
			signupTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	signupTotal.WithLabelValues("ok").Inc()
	s.log.Info("user signed up", zap.Uint("id", u.ID), zap.String("email", u.Email), zap.String("role", string(u.Role)))
	return u, nil
}

// Signin 校验通过后签发 access token
func (s *AuthService) Signin(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)

	u, err := s.users.FindByEmail(ctx, email, false)
	if err != nil {
		if !errs.IsNotFound(err) {
			signinTotal.WithLabelValues("error").Inc()
			return "", err
		}
		s.hasher.Verify(password, s.dummyHash)
		signinTotal.WithLabelValues("rejected").Inc()
		s.log.Info("signin rejected", zap.String("email", email))
		return "", ErrBadCredentials
	}
	if !s.hasher.Verify(password, u.Password) {
		signinTotal.WithLabelValues("rejected").Inc()
		s.log.Info("signin rejected", zap.String("email", email))
		return "", ErrBadCredentials
	}

	tok, err := s.tokens.Issue(u.Email, u.Role)
	if err != nil {
		signinTotal.WithLabelValues("error").Inc()
		return "", errs.Internal("issue token failed", err)
	}
	signinTotal.WithLabelValues("ok").Inc()
	s.log.Info("user signed in", zap.Uint("id", u.ID), zap.String("email", u.Email))
	return tok, nil
}

// hashError 输入本身不合法（空、超过 72 字节）映射为 400，其余为 500
func hashError(err error) error {
	switch {
	case errors.Is(err, utils.ErrPasswordTooLong), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return errs.BadRequest("password must be at most 72 bytes")
	case errors.Is(err, utils.ErrEmptyPassword):
		return errs.BadRequest("password must not be empty")
	}
	return errs.Internal("hash password failed", err)
}
