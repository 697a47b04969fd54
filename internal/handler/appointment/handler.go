package appointment

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mappasalud/citas-api/internal/handler"
	"github.com/mappasalud/citas-api/internal/middleware"
	"github.com/mappasalud/citas-api/internal/model"
)

// Service is the slice of the appointment service the handler needs.
type Service interface {
	List(ctx context.Context, sess *model.Session) ([]*model.Appointment, error)
	Create(ctx context.Context, sess *model.Session, req *model.CreateAppointmentRequest) error
	Update(ctx context.Context, sess *model.Session, req *model.UpdateAppointmentRequest) error
	Delete(ctx context.Context, sess *model.Session, confirmacion string) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the appointments endpoint. The confirmation
// code travels in the body on PUT and DELETE, matching the booking
// widget's wire format.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/appointments", h.list)
	router.POST("/appointments", h.create)
	router.PUT("/appointments", h.update)
	router.DELETE("/appointments", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	citas, err := h.service.List(c.Request.Context(), middleware.SessionFromContext(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{"citas": citas})
}

func (h *Handler) create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), middleware.SessionFromContext(c), &req); err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{
		"message":      "Cita creada exitosamente",
		"confirmacion": req.Confirmacion,
	})
}

func (h *Handler) update(c *gin.Context) {
	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	if err := h.service.Update(c.Request.Context(), middleware.SessionFromContext(c), &req); err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{"message": "Cita actualizada exitosamente"})
}

func (h *Handler) delete(c *gin.Context) {
	var req model.DeleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.SessionFromContext(c), req.Confirmacion); err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{"message": "Cita eliminada exitosamente"})
}
