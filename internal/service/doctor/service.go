package doctor

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/repository"
	"github.com/mappasalud/citas-api/internal/schema"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

// especialidades maps the short codes used by the booking form to the
// canonical labels stored on usuarios. Unmapped codes pass through
// unchanged.
var especialidades = map[string]string{
	"medicina-general":     "Medicina General",
	"cardiologia":          "Cardiología",
	"neurologia":           "Neurología",
	"pediatria":            "Pediatría",
	"ginecologia":          "Ginecología",
	"dermatologia":         "Dermatología",
	"oftalmologia":         "Oftalmología",
	"ortopedia":            "Ortopedia",
	"odontologia":          "Odontología",
	"psiquiatria":          "Psiquiatría",
	"endocrinologia":       "Endocrinología",
	"urologia":             "Urología",
	"otorrinolaringologia": "Otorrinolaringología",
	"gastroenterologia":    "Gastroenterología",
	"neumologia":           "Neumología",
	"reumatologia":         "Reumatología",
	"hematologia":          "Hematología",
	"oncologia":            "Oncología",
}

// slotTemplate is the fixed daily schedule: mornings 08:00-12:00,
// afternoons 14:00-18:00, lunch gap in between.
var slotTemplate = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00",
	"14:00", "15:00", "16:00", "17:00", "18:00",
}

const (
	directoryCacheTTL     = time.Minute
	directoryCacheCleanup = 5 * time.Minute
)

type Service struct {
	users     repository.UserRepository
	citas     repository.AppointmentRepository
	caps      schema.Capabilities
	directory *cache.Cache
}

func NewService(users repository.UserRepository, citas repository.AppointmentRepository, caps schema.Capabilities) *Service {
	return &Service{
		users:     users,
		citas:     citas,
		caps:      caps,
		directory: cache.New(directoryCacheTTL, directoryCacheCleanup),
	}
}

// ListBySpecialty returns active medicos for a specialty code. Without
// the especialidad column the whole active directory is returned.
func (s *Service) ListBySpecialty(ctx context.Context, code string) ([]*model.Doctor, error) {
	if code == "" {
		return nil, apperror.Validation("Especialidad requerida")
	}

	label := code
	if mapped, ok := especialidades[code]; ok {
		label = mapped
	}
	if !s.caps.UserSpecialty {
		label = ""
	}

	key := "medicos:" + label
	if cached, ok := s.directory.Get(key); ok {
		return cached.([]*model.Doctor), nil
	}

	doctors, err := s.users.ListDoctors(ctx, label)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}

	s.directory.Set(key, doctors, cache.DefaultExpiration)
	return doctors, nil
}

// AvailableSlots returns the slot template minus the times already
// booked for that doctor and date. Without the medico_id column there
// is no assignment to collide with, so the full template is returned.
func (s *Service) AvailableSlots(ctx context.Context, medicoID int64, fecha string) ([]string, error) {
	if medicoID == 0 || fecha == "" {
		return nil, apperror.Validation("Médico y fecha requeridos")
	}

	if !s.caps.CitaMedicoID {
		return append([]string(nil), slotTemplate...), nil
	}

	booked, err := s.citas.BookedTimes(ctx, medicoID, fecha)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	taken := make(map[string]bool, len(booked))
	for _, hora := range booked {
		taken[normalizeHora(hora)] = true
	}

	available := make([]string, 0, len(slotTemplate))
	for _, hora := range slotTemplate {
		if !taken[hora] {
			available = append(available, hora)
		}
	}
	return available, nil
}

// normalizeHora canonicalizes any stored time representation to HH:MM.
func normalizeHora(hora string) string {
	if len(hora) > 5 {
		return hora[:5]
	}
	return hora
}
