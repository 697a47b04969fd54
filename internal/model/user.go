package model

import (
	"strings"
	"time"

	"github.com/mappasalud/citas-api/internal/schema"
)

// User roles
const (
	RolPaciente = "paciente"
	RolMedico   = "medico"
	RolAdmin    = "admin"
)

// ValidRol reports whether rol is one of the known roles.
func ValidRol(rol string) bool {
	switch rol {
	case RolPaciente, RolMedico, RolAdmin:
		return true
	}
	return false
}

// User represents a row in the usuarios table. Optional fields are
// pointers: nil means the column is absent in this deployment or the
// value is NULL, and the field is omitted from responses. The password
// hash is never serialized.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Nombre       string    `db:"nombre" json:"nombre"`
	Telefono     string    `db:"telefono" json:"telefono"`
	Rol          string    `db:"rol" json:"rol"`
	Activo       bool      `db:"activo" json:"activo"`
	FechaCreacion time.Time `db:"fecha_creacion" json:"fecha_creacion"`

	RUT             *string `db:"rut" json:"rut,omitempty"`
	FechaNacimiento *string `db:"fecha_nacimiento" json:"fecha_nacimiento,omitempty"`
	Direccion       *string `db:"direccion" json:"direccion,omitempty"`
	Region          *string `db:"region" json:"region,omitempty"`
	Comuna          *string `db:"comuna" json:"comuna,omitempty"`
	Especialidad    *string `db:"especialidad" json:"especialidad,omitempty"`
}

// UserSummary is the admin listing shape: especialidad is always present
// and explicitly null when blank or unsupported.
type UserSummary struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Nombre        string    `json:"nombre"`
	Telefono      string    `json:"telefono"`
	Rol           string    `json:"rol"`
	Especialidad  *string   `json:"especialidad"`
	FechaCreacion time.Time `json:"fecha_creacion"`
	Activo        bool      `json:"activo"`
}

// Summary normalizes a user for the admin listing.
func (u *User) Summary() *UserSummary {
	s := &UserSummary{
		ID:            u.ID,
		Email:         u.Email,
		Nombre:        u.Nombre,
		Telefono:      u.Telefono,
		Rol:           u.Rol,
		FechaCreacion: u.FechaCreacion,
		Activo:        u.Activo,
	}
	if u.Especialidad != nil {
		if esp := strings.TrimSpace(*u.Especialidad); esp != "" {
			s.Especialidad = &esp
		}
	}
	return s
}

// Doctor is the public directory shape returned by the doctors endpoint.
type Doctor struct {
	ID           int64   `db:"id" json:"id"`
	Nombre       string  `db:"nombre" json:"nombre"`
	Email        string  `db:"email" json:"email"`
	Telefono     string  `db:"telefono" json:"telefono"`
	Especialidad *string `db:"especialidad" json:"especialidad,omitempty"`
}

// RegisterRequest is the self-service registration payload. Registration
// always produces a paciente.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	Nombre          string `json:"nombre" binding:"required"`
	Telefono        string `json:"telefono" binding:"required"`
	RUT             string `json:"rut"`
	FechaNacimiento string `json:"fecha_nacimiento" binding:"omitempty,dateformat"`
	Direccion       string `json:"direccion"`
	Region          string `json:"region"`
	Comuna          string `json:"comuna"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is the admin user-creation payload; unlike
// registration it may assign any role.
type CreateUserRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	Nombre       string `json:"nombre" binding:"required"`
	Rol          string `json:"rol" binding:"required"`
	Telefono     string `json:"telefono"`
	Region       string `json:"region"`
	Comuna       string `json:"comuna"`
	Especialidad string `json:"especialidad"`
}

// UpdateProfileRequest is a partial update: nil fields are untouched,
// empty strings clear the column.
type UpdateProfileRequest struct {
	Nombre          *string `json:"nombre"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Telefono        *string `json:"telefono"`
	Direccion       *string `json:"direccion"`
	Region          *string `json:"region"`
	Comuna          *string `json:"comuna"`
	FechaNacimiento *string `json:"fecha_nacimiento" binding:"omitempty,dateformat"`
	RUT             *string `json:"rut"`
}

// Columns maps the supplied fields onto the columns this deployment
// supports. Unsupported columns are silently skipped; empty values map
// to NULL.
func (p *UpdateProfileRequest) Columns(caps schema.Capabilities) ([]string, []interface{}) {
	fields := []struct {
		name      string
		supported bool
		value     *string
	}{
		{"nombre", true, p.Nombre},
		{"email", true, p.Email},
		{"telefono", true, p.Telefono},
		{"direccion", caps.UserAddress, p.Direccion},
		{"region", caps.UserRegion, p.Region},
		{"comuna", caps.UserComuna, p.Comuna},
		{"fecha_nacimiento", caps.UserBirthDate, p.FechaNacimiento},
		{"rut", caps.UserRUT, p.RUT},
	}

	var cols []string
	var vals []interface{}
	for _, f := range fields {
		if !f.supported || f.value == nil {
			continue
		}
		cols = append(cols, f.name)
		if *f.value == "" {
			vals = append(vals, nil)
		} else {
			vals = append(vals, *f.value)
		}
	}
	return cols, vals
}
