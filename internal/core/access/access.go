// Package access 路由访问控制：先验 token，再验角色
package access

import (
	"context"
	"slices"
	"strings"

	"go-gin-gorm-accounts/internal/core/auth"
	"go-gin-gorm-accounts/internal/core/errs"
	"go-gin-gorm-accounts/internal/domain"
)

// Policy 每个路由的访问策略；Roles 为空表示任意已登录角色
type Policy struct {
	Public bool
	Roles  []domain.Role
}

func Public() Policy                           { return Policy{Public: true} }
func Authenticated() Policy                    { return Policy{} }
func RequireRoles(roles ...domain.Role) Policy { return Policy{Roles: roles} }

type Principal struct {
	Email string
	Role  domain.Role
}

type Decision int

const (
	Allowed Decision = iota
	Unauthorized
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

type TokenVerifier interface {
	Parse(token string) (*auth.Claims, error)
}

type Gate struct {
	tokens TokenVerifier
}

func NewGate(tokens TokenVerifier) *Gate { return &Gate{tokens: tokens} }

// Decide authorization 为原始 Authorization 头；仅非公开且放行时返回 Principal
func (g *Gate) Decide(authorization string, p Policy) (Decision, *Principal) {
	d, who, _ := g.decide(authorization, p)
	return d, who
}

// Check 同 Decide，结果映射为 errs 错误
func (g *Gate) Check(authorization string, p Policy) (*Principal, error) {
	d, who, reason := g.decide(authorization, p)
	switch d {
	case Unauthorized:
		return nil, errs.Unauthorized(reason)
	case Forbidden:
		return nil, errs.Forbidden(reason)
	}
	return who, nil
}

func (g *Gate) decide(authorization string, p Policy) (Decision, *Principal, string) {
	var who *Principal
	if !p.Public {
		tok, ok := BearerToken(authorization)
		if !ok {
			return Unauthorized, nil, "missing token"
		}
		claims, err := g.tokens.Parse(tok)
		if err != nil || claims.Email == "" || !claims.Role.Valid() {
			return Unauthorized, nil, "invalid token"
		}
		who = &Principal{Email: claims.Email, Role: claims.Role}
	}

	if len(p.Roles) == 0 {
		return Allowed, who, ""
	}
	if who == nil || !slices.Contains(p.Roles, who.Role) {
		return Forbidden, nil, "access denied"
	}
	return Allowed, who, ""
}

// BearerToken 解析 "Bearer <token>"，scheme 不区分大小写
func BearerToken(authorization string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
