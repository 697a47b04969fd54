package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/repository"
	"github.com/mappasalud/citas-api/internal/schema"
	"github.com/mappasalud/citas-api/internal/validator"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

const bcryptCost = 12

type Service struct {
	users    repository.UserRepository
	sessions repository.SessionStore
	caps     schema.Capabilities
}

func NewService(users repository.UserRepository, sessions repository.SessionStore, caps schema.Capabilities) *Service {
	return &Service{users: users, sessions: sessions, caps: caps}
}

// Register creates a paciente account and opens a session for it.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, *model.Session, error) {
	if req.Email == "" || req.Password == "" || req.Nombre == "" || req.Telefono == "" {
		return nil, nil, apperror.Validation("Faltan campos requeridos: email, contraseña, nombre y teléfono")
	}

	// fecha_nacimiento is mandatory when the deployment carries the
	// column; a malformed date is rejected rather than silently nulled.
	if s.caps.UserBirthDate && req.FechaNacimiento == "" {
		return nil, nil, apperror.Validation("La fecha de nacimiento es requerida")
	}
	if req.FechaNacimiento != "" && !validator.ValidDate(req.FechaNacimiento) {
		return nil, nil, apperror.Validation("Fecha de nacimiento inválida")
	}

	taken, err := s.users.EmailTaken(ctx, req.Email, 0)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}
	if taken {
		return nil, nil, apperror.Conflict("El email ya está registrado")
	}

	if s.caps.UserRUT && req.RUT != "" {
		taken, err := s.users.RUTTaken(ctx, req.RUT)
		if err != nil {
			return nil, nil, apperror.Internal(err)
		}
		if taken {
			return nil, nil, apperror.Conflict("El RUT ya está registrado")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, nil, apperror.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &model.User{
		Email:           req.Email,
		PasswordHash:    string(hash),
		Nombre:          req.Nombre,
		Telefono:        req.Telefono,
		Rol:             model.RolPaciente,
		Activo:          true,
		RUT:             optional(s.caps.UserRUT, req.RUT),
		FechaNacimiento: optional(s.caps.UserBirthDate, req.FechaNacimiento),
		Direccion:       optional(s.caps.UserAddress, req.Direccion),
		Region:          optional(s.caps.UserRegion, req.Region),
		Comuna:          optional(s.caps.UserComuna, req.Comuna),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, wrap(err)
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Rol, user.Email)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}
	return user, sess, nil
}

// Login verifies credentials and opens a session. Unknown email and bad
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if email == "" || password == "" {
		return nil, nil, apperror.Validation("Email y contraseña son requeridos")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, nil, apperror.Auth("Credenciales inválidas")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperror.Auth("Credenciales inválidas")
	}

	if !user.Activo {
		return nil, nil, apperror.Forbidden("Usuario inactivo")
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Rol, user.Email)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}
	return user, sess, nil
}

// CreateUser is the admin path: unlike registration it may assign any
// role, and medicos must carry a specialty.
func (s *Service) CreateUser(ctx context.Context, sess *model.Session, req *model.CreateUserRequest) (*model.User, error) {
	if !sess.IsAdmin() {
		return nil, apperror.Forbidden("No autorizado")
	}

	if req.Email == "" || req.Password == "" || req.Nombre == "" || req.Rol == "" {
		return nil, apperror.Validation("Faltan campos requeridos")
	}
	if !model.ValidRol(req.Rol) {
		return nil, apperror.Validation("Rol inválido")
	}
	if req.Rol == model.RolMedico && req.Especialidad == "" {
		return nil, apperror.Validation("La especialidad es requerida para médicos")
	}

	taken, err := s.users.EmailTaken(ctx, req.Email, 0)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if taken {
		return nil, apperror.Conflict("El email ya está registrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Nombre:       req.Nombre,
		Telefono:     req.Telefono,
		Rol:          req.Rol,
		Activo:       true,
		Region:       optional(s.caps.UserRegion, req.Region),
		Comuna:       optional(s.caps.UserComuna, req.Comuna),
	}
	if req.Rol == model.RolMedico {
		user.Especialidad = optional(s.caps.UserSpecialty, req.Especialidad)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, wrap(err)
	}

	// The admin UI expects especialidad as a string, empty when absent.
	if user.Especialidad == nil {
		empty := ""
		user.Especialidad = &empty
	}
	return user, nil
}

// UpdateProfile applies a partial self-service update and returns the
// refreshed record.
func (s *Service) UpdateProfile(ctx context.Context, sess *model.Session, req *model.UpdateProfileRequest) (*model.User, error) {
	if sess == nil {
		return nil, apperror.Auth("No autorizado")
	}

	if req.Email != nil && *req.Email != "" {
		taken, err := s.users.EmailTaken(ctx, *req.Email, sess.UserID)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if taken {
			return nil, apperror.Conflict("El email ya está en uso por otro usuario")
		}
	}

	if req.FechaNacimiento != nil && *req.FechaNacimiento != "" && !validator.ValidDate(*req.FechaNacimiento) {
		return nil, apperror.Validation("Fecha de nacimiento inválida")
	}

	if cols, _ := req.Columns(s.caps); len(cols) == 0 {
		return nil, apperror.Validation("No hay campos para actualizar")
	}

	if err := s.users.UpdateProfile(ctx, sess.UserID, req); err != nil {
		return nil, wrap(err)
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, apperror.NotFound("Usuario no encontrado")
	}
	return user, nil
}

// Session introspects the current session. A session whose user no
// longer resolves to an active account is destroyed; the caller is then
// simply unauthenticated, never an error.
func (s *Service) Session(ctx context.Context, sess *model.Session) (*model.User, error) {
	if sess == nil {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil || !user.Activo {
		if err := s.sessions.Delete(ctx, sess.Token); err != nil {
			log.Warn().Err(err).Msg("failed to destroy stale session")
		}
		return nil, nil
	}
	return user, nil
}

// Logout destroys the session. Idempotent: logging out without a
// session, or twice, succeeds.
func (s *Service) Logout(ctx context.Context, sess *model.Session) error {
	if sess == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.Token); err != nil {
		log.Warn().Err(err).Msg("failed to destroy session")
	}
	return nil
}

// ListUsers returns every account for the admin panel, newest first,
// with especialidad normalized to null when blank.
func (s *Service) ListUsers(ctx context.Context, sess *model.Session) ([]*model.UserSummary, error) {
	if !sess.IsAdmin() {
		return nil, apperror.Forbidden("No autorizado")
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	summaries := make([]*model.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	return summaries, nil
}

func optional(supported bool, value string) *string {
	if !supported || strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

// wrap passes structured errors through and hides everything else.
func wrap(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(err)
}
