package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/domain"
	"go-gin-gorm-accounts/internal/service"
	"go-gin-gorm-accounts/internal/transport/http/ez"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Priority() int { return 20 }

type restoreIn struct {
	ID uint `uri:"id" binding:"required,min=1"`
}

type updateIn struct {
	Name     *string `json:"name"     binding:"omitempty,min=2,max=64"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
}

// MountAPI 挂载 /users 下的接口；静态路径优先于 /:id
func (h *UserHandler) MountAPI(e ez.EZ) {
	admin := access.RequireRoles(domain.RoleAdmin)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.UserResponse]{
		Method: http.MethodGet,
		Path:   "/users/everything",
		Binder: ez.BindNone,
		Policy: admin,
		Handler: func(c *gin.Context, _ *access.Principal, _ *struct{}) ([]domain.UserResponse, error) {
			us, err := h.svc.Everything(c.Request.Context())
			if err != nil {
				return nil, err
			}
			return domain.NewUserResponses(us), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, domain.UserResponse]{
		Method: http.MethodGet,
		Path:   "/users/me",
		Binder: ez.BindNone,
		Policy: access.Authenticated(),
		Handler: func(c *gin.Context, who *access.Principal, _ *struct{}) (domain.UserResponse, error) {
			u, err := h.svc.Me(c.Request.Context(), who.Email)
			if err != nil {
				return domain.UserResponse{}, err
			}
			return domain.NewUserResponse(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[restoreIn, domain.UserResponse]{
		Method: http.MethodPatch,
		Path:   "/users/restore/:id",
		Binder: ez.BindURI,
		Policy: admin,
		Handler: func(c *gin.Context, _ *access.Principal, in *restoreIn) (domain.UserResponse, error) {
			u, err := h.svc.Restore(c.Request.Context(), in.ID)
			if err != nil {
				return domain.UserResponse{}, err
			}
			return domain.NewUserResponse(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[updateIn, bool]{
		Method: http.MethodPatch,
		Path:   "/users",
		Binder: ez.BindJSON,
		Policy: access.Authenticated(),
		Handler: func(c *gin.Context, who *access.Principal, in *updateIn) (bool, error) {
			err := h.svc.Update(c.Request.Context(), who.Email, service.UpdateInput{Name: in.Name, Password: in.Password})
			return err == nil, err
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, bool]{
		Method: http.MethodDelete,
		Path:   "/users",
		Binder: ez.BindNone,
		Policy: access.Authenticated(),
		Handler: func(c *gin.Context, who *access.Principal, _ *struct{}) (bool, error) {
			err := h.svc.Remove(c.Request.Context(), who.Email)
			return err == nil, err
		},
	})
}
