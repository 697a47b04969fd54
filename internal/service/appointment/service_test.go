package appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/schema"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

type fakeCitaRepo struct {
	citas  map[string]*model.Appointment
	nextID int64
}

func newFakeCitaRepo() *fakeCitaRepo {
	return &fakeCitaRepo{citas: map[string]*model.Appointment{}, nextID: 1}
}

func (r *fakeCitaRepo) Create(ctx context.Context, cita *model.Appointment) error {
	if _, exists := r.citas[cita.Confirmacion]; exists {
		return apperror.Conflict("El código de confirmación ya existe")
	}
	if cita.MedicoID != nil {
		for _, c := range r.citas {
			if c.MedicoID != nil && *c.MedicoID == *cita.MedicoID && c.Fecha == cita.Fecha && c.Hora == cita.Hora {
				return apperror.Conflict("Ya existe una cita para este médico en la fecha y hora seleccionada")
			}
		}
	}
	cita.ID = r.nextID
	r.nextID++
	r.citas[cita.Confirmacion] = cita
	return nil
}

func (r *fakeCitaRepo) GetOwnership(ctx context.Context, confirmacion string) (*model.AppointmentOwnership, error) {
	c, ok := r.citas[confirmacion]
	if !ok {
		return nil, nil
	}
	return &model.AppointmentOwnership{UsuarioID: c.UsuarioID, Email: c.Email, OwnerKey: c.OwnerKey}, nil
}

func (r *fakeCitaRepo) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, c := range r.citas {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCitaRepo) ListByDoctor(ctx context.Context, medicoID int64) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, c := range r.citas {
		if c.MedicoID != nil && *c.MedicoID == medicoID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCitaRepo) ListByUser(ctx context.Context, usuarioID int64) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, c := range r.citas {
		if c.UsuarioID != nil && *c.UsuarioID == usuarioID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCitaRepo) ListByEmailOrOwnerKey(ctx context.Context, email string) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, c := range r.citas {
		if (c.Email != nil && *c.Email == email) || (c.OwnerKey != nil && *c.OwnerKey == email) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCitaRepo) Update(ctx context.Context, confirmacion string, upd *model.AppointmentUpdate) error {
	c := r.citas[confirmacion]
	c.Nombre = upd.Nombre
	c.Especialidad = upd.Especialidad
	c.Fecha = upd.Fecha
	c.Hora = upd.Hora
	return nil
}

func (r *fakeCitaRepo) Delete(ctx context.Context, confirmacion string) error {
	delete(r.citas, confirmacion)
	return nil
}

func (r *fakeCitaRepo) SlotTaken(ctx context.Context, medicoID int64, fecha, hora string) (bool, error) {
	for _, c := range r.citas {
		if c.MedicoID != nil && *c.MedicoID == medicoID && c.Fecha == fecha && c.Hora == hora {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCitaRepo) BookedTimes(ctx context.Context, medicoID int64, fecha string) ([]string, error) {
	var out []string
	for _, c := range r.citas {
		if c.MedicoID != nil && *c.MedicoID == medicoID && c.Fecha == fecha {
			out = append(out, c.Hora)
		}
	}
	return out, nil
}

var fullCaps = schema.Capabilities{CitaUsuarioID: true, CitaMedicoID: true}

func pacienteSession(id int64, email string) *model.Session {
	return &model.Session{Token: "t", UserID: id, Rol: model.RolPaciente, Email: email}
}

func createRequest(confirmacion string) *model.CreateAppointmentRequest {
	medicoID := int64(7)
	return &model.CreateAppointmentRequest{
		Nombre:       "Ana Pérez",
		Email:        "ana@example.com",
		Especialidad: "Cardiología",
		Fecha:        "2026-09-01",
		Hora:         "10:00",
		Confirmacion: confirmacion,
		MedicoID:     &medicoID,
	}
}

func TestCreateLinksCallerAndDefaultsTipoConsulta(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	err := svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("ABC123"))
	require.NoError(t, err)

	cita := repo.citas["ABC123"]
	require.NotNil(t, cita)
	assert.Equal(t, "presencial", cita.TipoConsulta)
	require.NotNil(t, cita.UsuarioID)
	assert.Equal(t, int64(3), *cita.UsuarioID)
	require.NotNil(t, cita.MedicoID)
	assert.Equal(t, int64(7), *cita.MedicoID)
}

func TestCreateRequiresSession(t *testing.T) {
	svc := NewService(newFakeCitaRepo(), fullCaps)

	err := svc.Create(context.Background(), nil, createRequest("ABC123"))
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("ABC123")))

	err := svc.Create(context.Background(), pacienteSession(4, "otro@example.com"), createRequest("XYZ789"))
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	assert.Equal(t, "Ya existe una cita para este médico en la fecha y hora seleccionada", apperror.Message(err))
}

func TestCreateSurfacesStorageConflict(t *testing.T) {
	// A duplicate confirmation code slips past the slot pre-check; the
	// storage layer rejects it and the caller still sees a conflict.
	repo := newFakeCitaRepo()
	svc := NewService(repo, schema.Capabilities{CitaMedicoID: true})

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("ABC123")))

	dup := createRequest("ABC123")
	dup.MedicoID = nil
	dup.Hora = "15:00"
	err := svc.Create(context.Background(), pacienteSession(4, "otro@example.com"), dup)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	assert.Equal(t, "El código de confirmación ya existe", apperror.Message(err))
}

func TestListScopedByRole(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	second := createRequest("BBB222")
	second.Hora = "11:00"
	second.Email = "otro@example.com"
	require.NoError(t, svc.Create(context.Background(), pacienteSession(4, "otro@example.com"), second))

	admin := &model.Session{UserID: 1, Rol: model.RolAdmin}
	all, err := svc.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	medico := &model.Session{UserID: 7, Rol: model.RolMedico}
	assigned, err := svc.List(context.Background(), medico)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	mine, err := svc.List(context.Background(), pacienteSession(3, "ana@example.com"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "AAA111", mine[0].Confirmacion)
}

func TestListNeverNil(t *testing.T) {
	svc := NewService(newFakeCitaRepo(), fullCaps)

	citas, err := svc.List(context.Background(), pacienteSession(3, "ana@example.com"))
	require.NoError(t, err)
	assert.NotNil(t, citas)
	assert.Empty(t, citas)
}

func TestListUnlinkedAnonymousPatientSeesNothing(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, schema.Capabilities{})

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	citas, err := svc.List(context.Background(), &model.Session{UserID: 9, Rol: model.RolPaciente})
	require.NoError(t, err)
	assert.Empty(t, citas)
}

func TestListByEmailFallback(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, schema.Capabilities{CitaMedicoID: true})

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	citas, err := svc.List(context.Background(), pacienteSession(99, "ana@example.com"))
	require.NoError(t, err)
	require.Len(t, citas, 1)
	assert.Equal(t, "AAA111", citas[0].Confirmacion)
}

func TestUpdateUnknownConfirmacion(t *testing.T) {
	svc := NewService(newFakeCitaRepo(), fullCaps)

	err := svc.Update(context.Background(), pacienteSession(3, "ana@example.com"), &model.UpdateAppointmentRequest{
		Confirmacion: "NOPE",
		Nombre:       "Ana",
		Especialidad: "Cardiología",
		Fecha:        "2026-09-01",
		Hora:         "10:00",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	assert.Equal(t, "Cita no encontrada", apperror.Message(err))
}

func TestUpdateForeignCitaForbidden(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	err := svc.Update(context.Background(), pacienteSession(4, "otro@example.com"), &model.UpdateAppointmentRequest{
		Confirmacion: "AAA111",
		Nombre:       "Intruso",
		Especialidad: "Cardiología",
		Fecha:        "2026-09-02",
		Hora:         "11:00",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
	assert.Equal(t, "No tienes permiso para editar esta cita", apperror.Message(err))
}

func TestUpdateByOwner(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	err := svc.Update(context.Background(), pacienteSession(3, "ana@example.com"), &model.UpdateAppointmentRequest{
		Confirmacion: "AAA111",
		Nombre:       "Ana Pérez",
		Especialidad: "Neurología",
		Fecha:        "2026-09-02",
		Hora:         "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Neurología", repo.citas["AAA111"].Especialidad)
}

func TestOwnerKeyGrantsAccess(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, schema.Capabilities{CitaMedicoID: true})

	req := createRequest("AAA111")
	req.Email = ""
	req.OwnerKey = "anon-key-1"
	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "x@example.com"), req))

	err := svc.Delete(context.Background(), pacienteSession(9, "anon-key-1"), "AAA111")
	require.NoError(t, err)
	assert.NotContains(t, repo.citas, "AAA111")
}

func TestDeleteForeignCitaForbidden(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	err := svc.Delete(context.Background(), pacienteSession(4, "otro@example.com"), "AAA111")
	require.Error(t, err)
	assert.Equal(t, "No tienes permiso para eliminar esta cita", apperror.Message(err))
	assert.Contains(t, repo.citas, "AAA111")
}

func TestAdminAndMedicoBypassOwnership(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, fullCaps)

	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, "ana@example.com"), createRequest("AAA111")))

	medico := &model.Session{UserID: 7, Rol: model.RolMedico}
	require.NoError(t, svc.Update(context.Background(), medico, &model.UpdateAppointmentRequest{
		Confirmacion: "AAA111",
		Nombre:       "Ana Pérez",
		Especialidad: "Cardiología",
		Fecha:        "2026-09-01",
		Hora:         "12:00",
	}))

	admin := &model.Session{UserID: 1, Rol: model.RolAdmin}
	require.NoError(t, svc.Delete(context.Background(), admin, "AAA111"))
}

func TestEmptySessionEmailMatchesNothing(t *testing.T) {
	repo := newFakeCitaRepo()
	svc := NewService(repo, schema.Capabilities{CitaMedicoID: true})

	req := createRequest("AAA111")
	req.Email = ""
	require.NoError(t, svc.Create(context.Background(), pacienteSession(3, ""), req))

	err := svc.Delete(context.Background(), &model.Session{UserID: 9, Rol: model.RolPaciente, Email: ""}, "AAA111")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}
