package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mappasalud/citas-api/internal/config"
	"github.com/mappasalud/citas-api/internal/middleware"
	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/validator"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

type stubService struct {
	registered *model.RegisterRequest
	loginErr   error
	user       *model.User
	session    *model.Session
	loggedOut  bool
}

func (s *stubService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, *model.Session, error) {
	s.registered = req
	return s.user, s.session, nil
}

func (s *stubService) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if s.loginErr != nil {
		return nil, nil, s.loginErr
	}
	return s.user, s.session, nil
}

func (s *stubService) CreateUser(ctx context.Context, sess *model.Session, req *model.CreateUserRequest) (*model.User, error) {
	return s.user, nil
}

func (s *stubService) UpdateProfile(ctx context.Context, sess *model.Session, req *model.UpdateProfileRequest) (*model.User, error) {
	return s.user, nil
}

func (s *stubService) Session(ctx context.Context, sess *model.Session) (*model.User, error) {
	if sess == nil {
		return nil, nil
	}
	return s.user, nil
}

func (s *stubService) Logout(ctx context.Context, sess *model.Session) error {
	s.loggedOut = true
	return nil
}

func (s *stubService) ListUsers(ctx context.Context, sess *model.Session) ([]*model.UserSummary, error) {
	if sess == nil || !sess.IsAdmin() {
		return nil, apperror.Forbidden("No autorizado")
	}
	return []*model.UserSummary{}, nil
}

var cookieConfig = config.SessionConfig{CookieName: "mappa_session", TTLHours: 24}

func newTestRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	_ = validator.Register()

	engine := gin.New()
	NewHandler(svc, cookieConfig).RegisterRoutes(engine.Group(""))
	return engine
}

func doJSON(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUnknownActionRejected(t *testing.T) {
	engine := newTestRouter(&stubService{})

	rec := doJSON(engine, http.MethodPost, "/auth?action=drop_tables", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Acción no válida", decode(t, rec)["message"])

	rec = doJSON(engine, http.MethodGet, "/auth", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	svc := &stubService{
		user:    &model.User{ID: 1, Email: "ana@example.com", Rol: model.RolPaciente},
		session: &model.Session{Token: "tok-123", UserID: 1, Rol: model.RolPaciente},
	}
	engine := newTestRouter(svc)

	rec := doJSON(engine, http.MethodPost, "/auth?action=register",
		`{"email":"ana@example.com","password":"secreta123","nombre":"Ana","telefono":"+56911111111"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "mappa_session", cookies[0].Name)
	assert.Equal(t, "tok-123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRegisterBindingFailures(t *testing.T) {
	engine := newTestRouter(&stubService{})

	rec := doJSON(engine, http.MethodPost, "/auth?action=register", `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Faltan campos requeridos", decode(t, rec)["message"])

	rec = doJSON(engine, http.MethodPost, "/auth?action=register",
		`{"email":"no-es-email","password":"x","nombre":"Ana","telefono":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email inválido", decode(t, rec)["message"])

	rec = doJSON(engine, http.MethodPost, "/auth?action=register",
		`{"email":"ana@example.com","password":"x","nombre":"Ana","telefono":"1","fecha_nacimiento":"20/05/1990"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Formato de fecha inválido", decode(t, rec)["message"])
}

func TestLoginFailureStatus(t *testing.T) {
	svc := &stubService{loginErr: apperror.Auth("Credenciales inválidas")}
	engine := newTestRouter(svc)

	rec := doJSON(engine, http.MethodPost, "/auth?action=login",
		`{"email":"ana@example.com","password":"mala"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Credenciales inválidas", body["message"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionWithoutCookie(t *testing.T) {
	engine := newTestRouter(&stubService{})

	rec := doJSON(engine, http.MethodGet, "/auth?action=session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["authenticated"])
}

func TestLogoutClearsCookie(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	rec := doJSON(engine, http.MethodGet, "/auth?action=logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.loggedOut)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "mappa_session", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestListUsersForbiddenForAnonymous(t *testing.T) {
	engine := newTestRouter(&stubService{})

	rec := doJSON(engine, http.MethodGet, "/auth?action=users", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "No autorizado", decode(t, rec)["message"])
}

func TestSessionResolvedFromContext(t *testing.T) {
	svc := &stubService{user: &model.User{ID: 5, Email: "ana@example.com", Activo: true}}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, &model.Session{Token: "tok", UserID: 5, Rol: model.RolPaciente})
	})
	NewHandler(svc, cookieConfig).RegisterRoutes(engine.Group(""))

	rec := doJSON(engine, http.MethodGet, "/auth?action=session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	require.NotNil(t, body["usuario"])
}
