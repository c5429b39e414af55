package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/domain"
	"go-gin-gorm-accounts/internal/service"
	"go-gin-gorm-accounts/internal/transport/http/ez"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Priority() int { return 10 }

type signupIn struct {
	Name     string      `json:"name"     binding:"required,min=2,max=64"`
	Email    string      `json:"email"    binding:"required,email,max=191"`
	Password string      `json:"password" binding:"required,min=8,max=72"`
	Role     domain.Role `json:"role"     binding:"omitempty,oneof=USER ADMIN"`
}

type signinIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type signinOut struct {
	AccessToken string `json:"access_token"`
}

// MountAPI 挂载 /auth/signup 与 /auth/signin（公开）
func (h *AuthHandler) MountAPI(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[signupIn, domain.UserResponse]{
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Binder: ez.BindJSON,
		Policy: access.Public(),
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *access.Principal, in *signupIn) (domain.UserResponse, error) {
			u, err := h.svc.Signup(c.Request.Context(), service.SignupInput{
				Name:     in.Name,
				Email:    in.Email,
				Password: in.Password,
				Role:     in.Role,
			})
			if err != nil {
				return domain.UserResponse{}, err
			}
			return domain.NewUserResponse(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[signinIn, signinOut]{
		Method: http.MethodPost,
		Path:   "/auth/signin",
		Binder: ez.BindJSON,
		Policy: access.Public(),
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *access.Principal, in *signinIn) (signinOut, error) {
			tok, err := h.svc.Signin(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return signinOut{}, err
			}
			return signinOut{AccessToken: tok}, nil
		},
	})
}
