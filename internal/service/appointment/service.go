package appointment

import (
	"context"
	"errors"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/repository"
	"github.com/mappasalud/citas-api/internal/schema"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

type Service struct {
	citas repository.AppointmentRepository
	caps  schema.Capabilities
}

func NewService(citas repository.AppointmentRepository, caps schema.Capabilities) *Service {
	return &Service{citas: citas, caps: caps}
}

// List returns the citas visible to the caller: admins see everything,
// medicos their assigned citas, pacientes their own. Always a slice,
// possibly empty, never nil.
func (s *Service) List(ctx context.Context, sess *model.Session) ([]*model.Appointment, error) {
	if sess == nil {
		return nil, apperror.Auth("No autorizado")
	}

	var (
		citas []*model.Appointment
		err   error
	)

	switch {
	case sess.IsAdmin():
		citas, err = s.citas.ListAll(ctx)
	case sess.IsMedico():
		if s.caps.CitaMedicoID {
			citas, err = s.citas.ListByDoctor(ctx, sess.UserID)
		} else {
			// legacy schema without assignment: nothing to filter on
			citas, err = s.citas.ListAll(ctx)
		}
	default:
		switch {
		case s.caps.CitaUsuarioID:
			citas, err = s.citas.ListByUser(ctx, sess.UserID)
		case sess.Email != "":
			citas, err = s.citas.ListByEmailOrOwnerKey(ctx, sess.Email)
		default:
			citas = []*model.Appointment{}
		}
	}

	if err != nil {
		return nil, apperror.Internal(err)
	}
	if citas == nil {
		citas = []*model.Appointment{}
	}
	return citas, nil
}

// Create books a cita for the caller. When a doctor is assigned the
// slot is pre-checked; the partial unique index on (medico_id, fecha,
// hora) closes the remaining race and also surfaces as a conflict.
func (s *Service) Create(ctx context.Context, sess *model.Session, req *model.CreateAppointmentRequest) error {
	if sess == nil {
		return apperror.Auth("No autorizado")
	}

	if s.caps.CitaMedicoID && req.MedicoID != nil {
		taken, err := s.citas.SlotTaken(ctx, *req.MedicoID, req.Fecha, req.Hora)
		if err != nil {
			return apperror.Internal(err)
		}
		if taken {
			return apperror.Conflict("Ya existe una cita para este médico en la fecha y hora seleccionada")
		}
	}

	tipoConsulta := req.TipoConsulta
	if tipoConsulta == "" {
		tipoConsulta = "presencial"
	}

	cita := &model.Appointment{
		Nombre:       req.Nombre,
		Telefono:     optional(req.Telefono),
		Email:        optional(req.Email),
		EdadPaciente: req.EdadPaciente,
		Especialidad: req.Especialidad,
		Fecha:        req.Fecha,
		Hora:         req.Hora,
		TipoConsulta: tipoConsulta,
		Motivo:       optional(req.Motivo),
		Confirmacion: req.Confirmacion,
		OwnerKey:     optional(req.OwnerKey),
	}
	if s.caps.CitaMedicoID {
		cita.MedicoID = req.MedicoID
	}
	if s.caps.CitaUsuarioID {
		userID := sess.UserID
		cita.UsuarioID = &userID
	}

	if err := s.citas.Create(ctx, cita); err != nil {
		return wrap(err)
	}
	return nil
}

// Update overwrites the editable fields of the cita identified by its
// confirmation code, if the caller may touch it.
func (s *Service) Update(ctx context.Context, sess *model.Session, req *model.UpdateAppointmentRequest) error {
	if sess == nil {
		return apperror.Auth("No autorizado")
	}

	own, err := s.citas.GetOwnership(ctx, req.Confirmacion)
	if err != nil {
		return apperror.Internal(err)
	}
	if own == nil {
		return apperror.NotFound("Cita no encontrada")
	}
	if !canModify(sess, own) {
		return apperror.Forbidden("No tienes permiso para editar esta cita")
	}

	upd := &model.AppointmentUpdate{
		Nombre:       req.Nombre,
		Telefono:     req.Telefono,
		Especialidad: req.Especialidad,
		Fecha:        req.Fecha,
		Hora:         req.Hora,
		Motivo:       req.Motivo,
	}
	if err := s.citas.Update(ctx, req.Confirmacion, upd); err != nil {
		return wrap(err)
	}
	return nil
}

// Delete physically removes the cita identified by its confirmation
// code, if the caller may touch it.
func (s *Service) Delete(ctx context.Context, sess *model.Session, confirmacion string) error {
	if sess == nil {
		return apperror.Auth("No autorizado")
	}

	own, err := s.citas.GetOwnership(ctx, confirmacion)
	if err != nil {
		return apperror.Internal(err)
	}
	if own == nil {
		return apperror.NotFound("Cita no encontrada")
	}
	if !canModify(sess, own) {
		return apperror.Forbidden("No tienes permiso para eliminar esta cita")
	}

	if err := s.citas.Delete(ctx, confirmacion); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// canModify: admins and medicos always; otherwise the stored owner via
// usuario_id, then the recorded email, then the anonymous owner key.
func canModify(sess *model.Session, own *model.AppointmentOwnership) bool {
	if sess.IsAdmin() || sess.IsMedico() {
		return true
	}
	if own.UsuarioID != nil && *own.UsuarioID == sess.UserID {
		return true
	}
	if sess.Email == "" {
		return false
	}
	if own.Email != nil && *own.Email == sess.Email {
		return true
	}
	if own.OwnerKey != nil && *own.OwnerKey == sess.Email {
		return true
	}
	return false
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func wrap(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(err)
}
