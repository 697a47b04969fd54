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

const uniqueViolation = "23505"

type userRepository struct {
	db   *sqlx.DB
	caps schema.Capabilities
}

func NewUserRepository(db *sqlx.DB, caps schema.Capabilities) repository.UserRepository {
	return &userRepository{db: db, caps: caps}
}

// selectColumns builds the SELECT list from the capability descriptor.
// fecha_nacimiento is formatted at the SQL boundary so the model carries
// a canonical YYYY-MM-DD string.
func (r *userRepository) selectColumns() string {
	cols := []string{"id", "email", "password", "nombre", "telefono", "rol", "activo", "fecha_creacion"}
	if r.caps.UserRUT {
		cols = append(cols, "rut")
	}
	if r.caps.UserBirthDate {
		cols = append(cols, "to_char(fecha_nacimiento, 'YYYY-MM-DD') AS fecha_nacimiento")
	}
	if r.caps.UserAddress {
		cols = append(cols, "direccion")
	}
	if r.caps.UserRegion {
		cols = append(cols, "region")
	}
	if r.caps.UserComuna {
		cols = append(cols, "comuna")
	}
	if r.caps.UserSpecialty {
		cols = append(cols, "especialidad")
	}
	return strings.Join(cols, ", ")
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	cols := []string{"email", "password", "nombre", "telefono", "rol", "activo"}
	args := []interface{}{user.Email, user.PasswordHash, user.Nombre, user.Telefono, user.Rol, user.Activo}

	optional := []struct {
		name      string
		supported bool
		value     *string
	}{
		{"rut", r.caps.UserRUT, user.RUT},
		{"fecha_nacimiento", r.caps.UserBirthDate, user.FechaNacimiento},
		{"direccion", r.caps.UserAddress, user.Direccion},
		{"region", r.caps.UserRegion, user.Region},
		{"comuna", r.caps.UserComuna, user.Comuna},
		{"especialidad", r.caps.UserSpecialty, user.Especialidad},
	}
	for _, opt := range optional {
		if !opt.supported || opt.value == nil {
			continue
		}
		cols = append(cols, opt.name)
		args = append(args, *opt.value)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO usuarios (%s) VALUES (%s) RETURNING id, fecha_creacion",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	err := r.db.QueryRowxContext(ctx, query, args...).Scan(&user.ID, &user.FechaCreacion)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "rut") {
				return apperror.Conflict("El RUT ya está registrado")
			}
			return apperror.Conflict("El email ya está registrado")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM usuarios WHERE id = $1", r.selectColumns())

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM usuarios WHERE email = $1", r.selectColumns())

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM usuarios WHERE email = $1 AND id <> $2)`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, email, excludeID); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

func (r *userRepository) RUTTaken(ctx context.Context, rut string) (bool, error) {
	if !r.caps.UserRUT {
		return false, nil
	}

	query := `SELECT EXISTS (SELECT 1 FROM usuarios WHERE rut = $1)`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, rut); err != nil {
		return false, fmt.Errorf("failed to check rut: %w", err)
	}
	return taken, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, upd *model.UpdateProfileRequest) error {
	cols, vals := upd.Columns(r.caps)
	if len(cols) == 0 {
		return fmt.Errorf("no updatable columns")
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	if r.caps.UserUpdatedAt {
		sets = append(sets, "fecha_actualizacion = NOW()")
	}

	query := fmt.Sprintf(
		"UPDATE usuarios SET %s WHERE id = $%d",
		strings.Join(sets, ", "),
		len(vals)+1,
	)
	vals = append(vals, id)

	result, err := r.db.ExecContext(ctx, query, vals...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "rut") {
				return apperror.Conflict("El RUT ya está registrado")
			}
			return apperror.Conflict("El email ya está en uso por otro usuario")
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM usuarios ORDER BY fecha_creacion DESC",
		r.selectColumns(),
	)

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListDoctors(ctx context.Context, especialidad string) ([]*model.Doctor, error) {
	var (
		query string
		args  []interface{}
	)

	if r.caps.UserSpecialty && especialidad != "" {
		query = `
			SELECT id, nombre, email, telefono, especialidad
			FROM usuarios
			WHERE rol = 'medico' AND activo AND especialidad = $1
			ORDER BY nombre
		`
		args = append(args, especialidad)
	} else {
		query = `
			SELECT id, nombre, email, telefono
			FROM usuarios
			WHERE rol = 'medico' AND activo
			ORDER BY nombre
		`
	}

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
