package doctor

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mappasalud/citas-api/internal/handler"
	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

// Service is the slice of the doctor directory the handler needs.
type Service interface {
	ListBySpecialty(ctx context.Context, code string) ([]*model.Doctor, error)
	AvailableSlots(ctx context.Context, medicoID int64, fecha string) ([]string, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public doctor directory. No session
// required: the booking widget queries it before login.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/doctors", h.handleGet)
}

func (h *Handler) handleGet(c *gin.Context) {
	switch c.Query("action") {
	case "por_especialidad":
		h.listBySpecialty(c)
	case "horas_disponibles":
		h.availableSlots(c)
	default:
		handler.InvalidAction(c)
	}
}

func (h *Handler) listBySpecialty(c *gin.Context) {
	medicos, err := h.service.ListBySpecialty(c.Request.Context(), c.Query("especialidad"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{"medicos": medicos})
}

func (h *Handler) availableSlots(c *gin.Context) {
	var medicoID int64
	if raw := c.Query("medico_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			handler.Error(c, apperror.Validation("Médico y fecha requeridos"))
			return
		}
		medicoID = id
	}

	horas, err := h.service.AvailableSlots(c.Request.Context(), medicoID, c.Query("fecha"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.OK(c, gin.H{"horas": horas})
}
