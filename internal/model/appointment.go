package model

// Appointment represents a row in the citas table. Fecha and Hora are
// kept as canonical strings (YYYY-MM-DD / HH:MM); the repository formats
// them at the SQL boundary. MedicoNombre and MedicoEmail are only
// populated on the admin listing, joined from the assigned doctor.
type Appointment struct {
	ID           int64   `db:"id" json:"id"`
	Nombre       string  `db:"nombre" json:"nombre"`
	Telefono     *string `db:"telefono" json:"telefono"`
	Email        *string `db:"email" json:"email"`
	EdadPaciente *int    `db:"edad_paciente" json:"edad_paciente"`
	Especialidad string  `db:"especialidad" json:"especialidad"`
	Fecha        string  `db:"fecha" json:"fecha"`
	Hora         string  `db:"hora" json:"hora"`
	TipoConsulta string  `db:"tipo_consulta" json:"tipo_consulta"`
	Motivo       *string `db:"motivo" json:"motivo"`
	Confirmacion string  `db:"confirmacion" json:"confirmacion"`
	OwnerKey     *string `db:"owner_key" json:"owner_key,omitempty"`
	UsuarioID    *int64  `db:"usuario_id" json:"usuario_id,omitempty"`
	MedicoID     *int64  `db:"medico_id" json:"medico_id,omitempty"`
	MedicoNombre *string `db:"medico_nombre" json:"medico_nombre,omitempty"`
	MedicoEmail  *string `db:"medico_email" json:"medico_email,omitempty"`
}

// AppointmentOwnership is the slice of a cita needed to decide who may
// edit or delete it.
type AppointmentOwnership struct {
	UsuarioID *int64  `db:"usuario_id"`
	Email     *string `db:"email"`
	OwnerKey  *string `db:"owner_key"`
}

// CreateAppointmentRequest carries a new booking. The confirmation code
// is caller-supplied and becomes the lookup key for later edits.
type CreateAppointmentRequest struct {
	Nombre       string `json:"nombre" binding:"required"`
	Telefono     string `json:"telefono"`
	Email        string `json:"email" binding:"omitempty,email"`
	EdadPaciente *int   `json:"edadPaciente"`
	Especialidad string `json:"especialidad" binding:"required"`
	Fecha        string `json:"fecha" binding:"required,dateformat"`
	Hora         string `json:"hora" binding:"required"`
	TipoConsulta string `json:"tipoConsulta"`
	Motivo       string `json:"motivo"`
	Confirmacion string `json:"confirmacion" binding:"required"`
	OwnerKey     string `json:"ownerKey"`
	MedicoID     *int64 `json:"medico_id"`
}

// UpdateAppointmentRequest overwrites the editable fields of a cita.
// Confirmation code and ownership are immutable.
type UpdateAppointmentRequest struct {
	Confirmacion string `json:"confirmacion" binding:"required"`
	Nombre       string `json:"nombre" binding:"required"`
	Telefono     string `json:"telefono"`
	Especialidad string `json:"especialidad" binding:"required"`
	Fecha        string `json:"fecha" binding:"required,dateformat"`
	Hora         string `json:"hora" binding:"required"`
	Motivo       string `json:"motivo"`
}

// AppointmentUpdate is the repository-level shape of an update.
type AppointmentUpdate struct {
	Nombre       string
	Telefono     string
	Especialidad string
	Fecha        string
	Hora         string
	Motivo       string
}

// DeleteAppointmentRequest identifies the cita to remove.
type DeleteAppointmentRequest struct {
	Confirmacion string `json:"confirmacion" binding:"required"`
}
