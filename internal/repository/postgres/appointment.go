package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/repository"
	"github.com/mappasalud/citas-api/internal/schema"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

const slotConflictMessage = "Ya existe una cita para este médico en la fecha y hora seleccionada"

type appointmentRepository struct {
	db   *sqlx.DB
	caps schema.Capabilities
}

func NewAppointmentRepository(db *sqlx.DB, caps schema.Capabilities) repository.AppointmentRepository {
	return &appointmentRepository{db: db, caps: caps}
}

// selectColumns builds the SELECT list with an optional table alias
// prefix. fecha and hora are canonicalized at the SQL boundary.
func (r *appointmentRepository) selectColumns(prefix string) string {
	cols := []string{
		"id", "nombre", "telefono", "email", "edad_paciente", "especialidad",
	}
	for i, c := range cols {
		cols[i] = prefix + c
	}
	cols = append(cols,
		fmt.Sprintf("to_char(%sfecha, 'YYYY-MM-DD') AS fecha", prefix),
		fmt.Sprintf("to_char(%shora, 'HH24:MI') AS hora", prefix),
		prefix+"tipo_consulta",
		prefix+"motivo",
		prefix+"confirmacion",
		prefix+"owner_key",
	)
	if r.caps.CitaUsuarioID {
		cols = append(cols, prefix+"usuario_id")
	}
	if r.caps.CitaMedicoID {
		cols = append(cols, prefix+"medico_id")
	}
	return strings.Join(cols, ", ")
}

func (r *appointmentRepository) Create(ctx context.Context, cita *model.Appointment) error {
	cols := []string{"nombre", "especialidad", "fecha", "hora", "tipo_consulta", "confirmacion"}
	args := []interface{}{
		cita.Nombre, cita.Especialidad, cita.Fecha, cita.Hora,
		cita.TipoConsulta, cita.Confirmacion,
	}

	optional := []struct {
		name      string
		supported bool
		value     interface{}
		present   bool
	}{
		{"telefono", true, cita.Telefono, cita.Telefono != nil},
		{"email", true, cita.Email, cita.Email != nil},
		{"edad_paciente", true, cita.EdadPaciente, cita.EdadPaciente != nil},
		{"motivo", true, cita.Motivo, cita.Motivo != nil},
		{"owner_key", true, cita.OwnerKey, cita.OwnerKey != nil},
		{"usuario_id", r.caps.CitaUsuarioID, cita.UsuarioID, cita.UsuarioID != nil},
		{"medico_id", r.caps.CitaMedicoID, cita.MedicoID, cita.MedicoID != nil},
	}
	for _, opt := range optional {
		if !opt.supported || !opt.present {
			continue
		}
		cols = append(cols, opt.name)
		args = append(args, opt.value)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO citas (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&cita.ID); err != nil {
		return r.mapUniqueViolation(err, "failed to create cita")
	}
	return nil
}

func (r *appointmentRepository) GetOwnership(ctx context.Context, confirmacion string) (*model.AppointmentOwnership, error) {
	cols := []string{"email", "owner_key"}
	if r.caps.CitaUsuarioID {
		cols = append(cols, "usuario_id")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM citas WHERE confirmacion = $1",
		strings.Join(cols, ", "),
	)

	var own model.AppointmentOwnership
	if err := r.db.GetContext(ctx, &own, query, confirmacion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cita ownership: %w", err)
	}
	return &own, nil
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	var query string
	if r.caps.CitaMedicoID {
		query = fmt.Sprintf(`
			SELECT %s, u.nombre AS medico_nombre, u.email AS medico_email
			FROM citas c
			LEFT JOIN usuarios u ON c.medico_id = u.id
			ORDER BY c.fecha DESC, c.hora DESC
		`, r.selectColumns("c."))
	} else {
		query = fmt.Sprintf(
			"SELECT %s FROM citas ORDER BY fecha DESC, hora DESC",
			r.selectColumns(""),
		)
	}

	var citas []*model.Appointment
	if err := r.db.SelectContext(ctx, &citas, query); err != nil {
		return nil, fmt.Errorf("failed to list citas: %w", err)
	}
	return citas, nil
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, medicoID int64) ([]*model.Appointment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM citas WHERE medico_id = $1 ORDER BY fecha DESC, hora DESC",
		r.selectColumns(""),
	)

	var citas []*model.Appointment
	if err := r.db.SelectContext(ctx, &citas, query, medicoID); err != nil {
		return nil, fmt.Errorf("failed to list citas by doctor: %w", err)
	}
	return citas, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, usuarioID int64) ([]*model.Appointment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM citas WHERE usuario_id = $1 ORDER BY fecha DESC, hora DESC",
		r.selectColumns(""),
	)

	var citas []*model.Appointment
	if err := r.db.SelectContext(ctx, &citas, query, usuarioID); err != nil {
		return nil, fmt.Errorf("failed to list citas by user: %w", err)
	}
	return citas, nil
}

func (r *appointmentRepository) ListByEmailOrOwnerKey(ctx context.Context, email string) ([]*model.Appointment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM citas WHERE email = $1 OR owner_key = $1 ORDER BY fecha DESC, hora DESC",
		r.selectColumns(""),
	)

	var citas []*model.Appointment
	if err := r.db.SelectContext(ctx, &citas, query, email); err != nil {
		return nil, fmt.Errorf("failed to list citas by owner key: %w", err)
	}
	return citas, nil
}

func (r *appointmentRepository) Update(ctx context.Context, confirmacion string, upd *model.AppointmentUpdate) error {
	query := `
		UPDATE citas SET
			nombre = $1, telefono = $2, especialidad = $3,
			fecha = $4, hora = $5, motivo = $6
		WHERE confirmacion = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		upd.Nombre,
		nullIfEmpty(upd.Telefono),
		upd.Especialidad,
		upd.Fecha,
		upd.Hora,
		nullIfEmpty(upd.Motivo),
		confirmacion,
	)
	if err != nil {
		return r.mapUniqueViolation(err, "failed to update cita")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cita not found")
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, confirmacion string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM citas WHERE confirmacion = $1", confirmacion)
	if err != nil {
		return fmt.Errorf("failed to delete cita: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cita not found")
	}
	return nil
}

func (r *appointmentRepository) SlotTaken(ctx context.Context, medicoID int64, fecha, hora string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM citas
			WHERE medico_id = $1 AND fecha = $2 AND hora = $3
		)
	`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, medicoID, fecha, hora); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *appointmentRepository) BookedTimes(ctx context.Context, medicoID int64, fecha string) ([]string, error) {
	query := `
		SELECT to_char(hora, 'HH24:MI')
		FROM citas
		WHERE medico_id = $1 AND fecha = $2 AND hora IS NOT NULL
	`

	var horas []string
	if err := r.db.SelectContext(ctx, &horas, query, medicoID, fecha); err != nil {
		return nil, fmt.Errorf("failed to get booked times: %w", err)
	}
	return horas, nil
}

// mapUniqueViolation surfaces unique-index violations as caller-facing
// conflicts. The partial index on (medico_id, fecha, hora) is the
// authoritative double-booking guard; the pre-check in the service is
// only a friendlier fast path.
func (r *appointmentRepository) mapUniqueViolation(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "confirmacion") {
			return apperror.Conflict("El código de confirmación ya existe")
		}
		return apperror.Conflict(slotConflictMessage)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
