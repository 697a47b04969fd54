package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mappasalud/citas-api/internal/config"
	"github.com/mappasalud/citas-api/internal/handler"
	"github.com/mappasalud/citas-api/internal/middleware"
	"github.com/mappasalud/citas-api/internal/model"
)

// Service is the slice of the auth service the handler needs.
type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, *model.Session, error)
	Login(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	CreateUser(ctx context.Context, sess *model.Session, req *model.CreateUserRequest) (*model.User, error)
	UpdateProfile(ctx context.Context, sess *model.Session, req *model.UpdateProfileRequest) (*model.User, error)
	Session(ctx context.Context, sess *model.Session) (*model.User, error)
	Logout(ctx context.Context, sess *model.Session) error
	ListUsers(ctx context.Context, sess *model.Session) ([]*model.UserSummary, error)
}

type Handler struct {
	service Service
	cookies config.SessionConfig
}

func NewHandler(service Service, cookies config.SessionConfig) *Handler {
	return &Handler{service: service, cookies: cookies}
}

// RegisterRoutes mounts the action-dispatched auth endpoint.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth", h.handlePost)
	router.GET("/auth", h.handleGet)
}

func (h *Handler) handlePost(c *gin.Context) {
	switch c.Query("action") {
	case "register":
		h.register(c)
	case "login":
		h.login(c)
	case "create_user":
		h.createUser(c)
	case "update_profile":
		h.updateProfile(c)
	default:
		handler.InvalidAction(c)
	}
}

func (h *Handler) handleGet(c *gin.Context) {
	switch c.Query("action") {
	case "session":
		h.session(c)
	case "logout":
		h.logout(c)
	case "users":
		h.listUsers(c)
	default:
		handler.InvalidAction(c)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	user, sess, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	h.setSessionCookie(c, sess)
	handler.OK(c, gin.H{
		"message": "Usuario registrado exitosamente",
		"usuario": user,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	user, sess, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.Error(c, err)
		return
	}

	h.setSessionCookie(c, sess)
	handler.OK(c, gin.H{"usuario": user})
}

func (h *Handler) createUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), middleware.SessionFromContext(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{
		"message": "Usuario creado exitosamente",
		"usuario": user,
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.SessionFromContext(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{
		"message": "Perfil actualizado exitosamente",
		"usuario": user,
	})
}

// session reports whether the caller is authenticated. Always 200: an
// anonymous caller is a valid answer, not an error.
func (h *Handler) session(c *gin.Context) {
	user, err := h.service.Session(c.Request.Context(), middleware.SessionFromContext(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	if user == nil {
		handler.OK(c, gin.H{"authenticated": false})
		return
	}
	handler.OK(c, gin.H{
		"authenticated": true,
		"usuario":       user,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.SessionFromContext(c)); err != nil {
		handler.Error(c, err)
		return
	}

	h.clearSessionCookie(c)
	handler.OK(c, gin.H{"message": "Sesión cerrada"})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), middleware.SessionFromContext(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{"users": users})
}

func (h *Handler) setSessionCookie(c *gin.Context, sess *model.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.CookieName, sess.Token, int(h.cookies.TTL().Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.CookieName, "", -1, "/", "", h.cookies.Secure, true)
}
