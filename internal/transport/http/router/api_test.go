package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/core/auth"
	"go-gin-gorm-accounts/internal/core/config"
	"go-gin-gorm-accounts/internal/core/database/dbtest"
	"go-gin-gorm-accounts/internal/domain"
	"go-gin-gorm-accounts/internal/repo"
	"go-gin-gorm-accounts/internal/service"
	"go-gin-gorm-accounts/internal/transport/http/ez"
	"go-gin-gorm-accounts/internal/transport/http/handler"
	resp "go-gin-gorm-accounts/internal/transport/http/response"
	"go-gin-gorm-accounts/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type app struct {
	t     *testing.T
	r     *gin.Engine
	jwter *auth.JWTer
}

func newApp(t *testing.T) *app {
	t.Helper()
	users := repo.NewUserRepo(dbtest.Open(t))
	hasher := utils.NewHasher(bcrypt.MinCost)
	jwter := &auth.JWTer{Secret: []byte("router-secret"), TTL: time.Hour}
	log := zap.NewNop()

	authSvc, err := service.NewAuthService(users, hasher, jwter, log)
	require.NoError(t, err)
	userSvc := service.NewUserService(users, hasher, log)

	cfg := config.HTTP{
		RequestTimeoutSec: 5,
		MaxBodyBytes:      1 << 20,
		MaxConcurrent:     64,
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		AuthRPSPerIP:      1000,
		AuthBurstPerIP:    1000,
	}
	r := NewAPIEngine(log, cfg, access.NewGate(jwter),
		handler.NewUserHandler(userSvc),
		handler.NewAuthHandler(authSvc),
	)
	return &app{t: t, r: r, jwter: jwter}
}

func (a *app) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func (a *app) signup(body string) domain.UserResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/auth/signup", "", body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var u domain.UserResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &u))
	return u
}

func (a *app) signin(email, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/auth/signin", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(a.t, out.AccessToken)
	return out.AccessToken
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) resp.Resp {
	t.Helper()
	var b resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), w.Body.String())
	assert.Equal(t, w.Code, b.Code)
	return b
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	w := a.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupScenario(t *testing.T) {
	a := newApp(t)

	w := a.do(http.MethodPost, "/auth/signup", "", `{"name":"Kim","email":"a@x.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.EqualValues(t, 1, raw["id"])
	assert.Equal(t, "Kim", raw["name"])
	assert.Equal(t, "a@x.com", raw["email"])
	assert.Equal(t, "USER", raw["role"])
	assert.Nil(t, raw["deletedAt"])
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, strings.ToLower(w.Body.String()), "$2a$")

	w = a.do(http.MethodPost, "/auth/signup", "", `{"name":"Kim","email":"a@x.com","password":"password1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already in use", errBody(t, w).Msg)
}

func TestSignupValidation(t *testing.T) {
	a := newApp(t)
	cases := map[string]string{
		"short password": `{"name":"Kim","email":"a@x.com","password":"short"}`,
		"bad email":      `{"name":"Kim","email":"nope","password":"password1"}`,
		"missing name":   `{"email":"a@x.com","password":"password1"}`,
		"unknown role":   `{"name":"Kim","email":"a@x.com","password":"password1","role":"ROOT"}`,
		"unknown field":  `{"name":"Kim","email":"a@x.com","password":"password1","admin":true}`,
		"long password":  `{"name":"Kim","email":"a@x.com","password":"` + strings.Repeat("p", 73) + `"}`,

		// 40 个字符过了 max=72，但 80 字节超过 bcrypt 上限
		"multi-byte password": `{"name":"Kim","email":"a@x.com","password":"` + strings.Repeat("é", 40) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := a.do(http.MethodPost, "/auth/signup", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestSigninTokenAndGenericFailure(t *testing.T) {
	a := newApp(t)
	a.signup(`{"name":"Kim","email":"a@x.com","password":"password1"}`)

	tok := a.signin("a@x.com", "password1")
	claims, err := a.jwter.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)

	wrongPw := a.do(http.MethodPost, "/auth/signin", "", `{"email":"a@x.com","password":"password2"}`)
	noUser := a.do(http.MethodPost, "/auth/signin", "", `{"email":"b@x.com","password":"password1"}`)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)
	assert.Equal(t, wrongPw.Body.String(), noUser.Body.String())
	assert.Equal(t, "check your email or password", errBody(t, wrongPw).Msg)
}

func TestAccessControl(t *testing.T) {
	a := newApp(t)
	a.signup(`{"name":"Kim","email":"a@x.com","password":"password1"}`)
	a.signup(`{"name":"Root","email":"root@x.com","password":"password1","role":"ADMIN"}`)
	userTok := a.signin("a@x.com", "password1")
	adminTok := a.signin("root@x.com", "password1")

	w := a.do(http.MethodGet, "/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = a.do(http.MethodGet, "/users/me", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := &auth.JWTer{Secret: []byte("router-secret"), TTL: -time.Hour}
	old, err := expired.Issue("a@x.com", domain.RoleUser)
	require.NoError(t, err)
	w = a.do(http.MethodGet, "/users/me", old, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/users/everything", userTok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodPatch, "/users/restore/1", userTok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/users/me", userTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var me domain.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "a@x.com", me.Email)

	w = a.do(http.MethodGet, "/users/everything", adminTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []domain.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestUpdateSelf(t *testing.T) {
	a := newApp(t)
	a.signup(`{"name":"Kim","email":"a@x.com","password":"password1"}`)
	tok := a.signin("a@x.com", "password1")

	w := a.do(http.MethodPatch, "/users", tok, `{"role":"ADMIN"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(http.MethodPatch, "/users", tok, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, "/users", tok, `{"name":"Kimberly","password":"password2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "true", strings.TrimSpace(w.Body.String()))

	a.signin("a@x.com", "password2")
	w = a.do(http.MethodPost, "/auth/signin", "", `{"email":"a@x.com","password":"password1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/users/me", tok, "")
	var me domain.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "Kimberly", me.Name)
	assert.Equal(t, domain.RoleUser, me.Role)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	a := newApp(t)
	kim := a.signup(`{"name":"Kim","email":"a@x.com","password":"password1"}`)
	a.signup(`{"name":"Root","email":"root@x.com","password":"password1","role":"ADMIN"}`)
	userTok := a.signin("a@x.com", "password1")
	adminTok := a.signin("root@x.com", "password1")

	w := a.do(http.MethodPatch, "/users/restore/1", adminTok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user is already active", errBody(t, w).Msg)

	w = a.do(http.MethodDelete, "/users", userTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", strings.TrimSpace(w.Body.String()))

	// token 仍有效，但账号已软删
	w = a.do(http.MethodGet, "/users/me", userTok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodDelete, "/users", userTok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(http.MethodPost, "/auth/signin", "", `{"email":"a@x.com","password":"password1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = a.do(http.MethodPost, "/auth/signup", "", `{"name":"Kim","email":"a@x.com","password":"password1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodGet, "/users/everything", adminTok, "")
	var all []domain.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, kim.ID, all[0].ID)
	assert.NotNil(t, all[0].DeletedAt)

	w = a.do(http.MethodPatch, "/users/restore/1", adminTok, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var restored domain.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &restored))
	assert.Equal(t, "a@x.com", restored.Email)
	assert.Nil(t, restored.DeletedAt)

	a.signin("a@x.com", "password1")

	w = a.do(http.MethodPatch, "/users/restore/999", adminTok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodPatch, "/users/restore/abc", adminTok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type plainMod struct {
	name string
	out  *[]string
}

func (m plainMod) MountAPI(ez.EZ) { *m.out = append(*m.out, m.name) }

type rankedMod struct {
	plainMod
	prio int
}

func (m rankedMod) Priority() int { return m.prio }

func TestModulePriority(t *testing.T) {
	var order []string
	mods := []APIModule{
		plainMod{name: "default", out: &order},
		rankedMod{plainMod{name: "late", out: &order}, 50},
		rankedMod{plainMod{name: "early", out: &order}, 1},
	}
	mountAll(ez.New(&gin.New().RouterGroup, nil), mods)
	assert.Equal(t, []string{"early", "late", "default"}, order)
}
