package repository

import (
	"context"

	"github.com/mappasalud/citas-api/internal/model"
)

type (
	// UserRepository handles usuarios persistence. Lookups return
	// (nil, nil) when no row matches.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id int64) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
		RUTTaken(ctx context.Context, rut string) (bool, error)
		UpdateProfile(ctx context.Context, id int64, upd *model.UpdateProfileRequest) error
		List(ctx context.Context) ([]*model.User, error)
		// ListDoctors returns active medicos, optionally filtered by
		// especialidad ("" means all).
		ListDoctors(ctx context.Context, especialidad string) ([]*model.Doctor, error)
	}

	// AppointmentRepository handles citas persistence, keyed by the
	// caller-supplied confirmation code.
	AppointmentRepository interface {
		Create(ctx context.Context, cita *model.Appointment) error
		GetOwnership(ctx context.Context, confirmacion string) (*model.AppointmentOwnership, error)
		ListAll(ctx context.Context) ([]*model.Appointment, error)
		ListByDoctor(ctx context.Context, medicoID int64) ([]*model.Appointment, error)
		ListByUser(ctx context.Context, usuarioID int64) ([]*model.Appointment, error)
		ListByEmailOrOwnerKey(ctx context.Context, email string) ([]*model.Appointment, error)
		Update(ctx context.Context, confirmacion string, upd *model.AppointmentUpdate) error
		Delete(ctx context.Context, confirmacion string) error
		SlotTaken(ctx context.Context, medicoID int64, fecha, hora string) (bool, error)
		// BookedTimes returns the occupied times for a doctor on a date,
		// normalized to HH:MM.
		BookedTimes(ctx context.Context, medicoID int64, fecha string) ([]string, error)
	}

	// SessionStore is the external session collaborator: an opaque token
	// mapped to a small user attribute set, scoped to one browser session.
	SessionStore interface {
		Create(ctx context.Context, userID int64, rol, email string) (*model.Session, error)
		// Get returns (nil, nil) when the token is unknown or expired.
		Get(ctx context.Context, token string) (*model.Session, error)
		Delete(ctx context.Context, token string) error
	}
)
