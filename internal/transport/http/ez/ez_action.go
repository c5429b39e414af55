package ez

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/core/errs"
	mdw "go-gin-gorm-accounts/internal/transport/http/middleware"
	resp "go-gin-gorm-accounts/internal/transport/http/response"
)

type EZ struct {
	g    *gin.RouterGroup
	gate *access.Gate
}

func New(g *gin.RouterGroup, gate *access.Gate) EZ { return EZ{g: g, gate: gate} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路径参数 /:id 绑定
	BindNone  Binder = "none"  // 不绑定
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string        // "GET" | "POST" | "PATCH" | "PUT" | "DELETE"
	Path   string        // 例："/auth/signin"、"/users/restore/:id"
	Binder Binder        // 绑定方式
	Policy access.Policy // 访问策略（公开 / 登录 / 角色）
	Status int           // 成功状态码，默认 200
	// who 为 nil 表示公开接口
	Handler func(c *gin.Context, who *access.Principal, in *I) (O, error)
}

// RegisterAction 注册动作：先过访问控制，再绑定入参，最后执行并统一映射错误
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		who, _ := access.PrincipalFrom(c.Request.Context())

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindURI:
			bindErr = c.ShouldBindUri(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			// 无 Content-Length（chunked）时，超限在读 body 阶段才暴露
			var tooLarge *http.MaxBytesError
			if errors.As(bindErr, &tooLarge) {
				resp.Abort(c, resp.CodeTooLarge, "request body too large")
				return
			}
			resp.Abort(c, resp.CodeBadRequest, bindMessage(bindErr))
			return
		}

		out, err := a.Handler(c, who, &in)
		if err != nil {
			WriteError(c, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, out)
	}

	method := strings.ToUpper(a.Method)
	if method == "" {
		method = http.MethodPost
	}
	e.g.Handle(method, a.Path, mdw.Authorize(e.gate, a.Policy), h)
}

// WriteError 统一错误映射；5xx 不向外暴露底层错误，只记录到 gin 上下文
func WriteError(c *gin.Context, err error) {
	code := errs.CodeOf(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
		var ae *errs.Error
		if !errors.As(err, &ae) {
			msg = ""
		}
	}
	resp.Abort(c, code, msg)
}

func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), rule))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}
