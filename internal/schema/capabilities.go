// Package schema resolves, once at startup, which optional columns the
// deployed database carries. Older deployments lack some of the usuarios
// and citas columns; a missing column narrows behavior instead of failing.
package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Capabilities describes the optional columns present in the database.
type Capabilities struct {
	UserRUT       bool
	UserBirthDate bool
	UserAddress   bool
	UserRegion    bool
	UserComuna    bool
	UserSpecialty bool
	UserUpdatedAt bool
	CitaUsuarioID bool
	CitaMedicoID  bool
}

// Detect probes information_schema for the usuarios and citas tables.
func Detect(ctx context.Context, db *sqlx.DB) (Capabilities, error) {
	userCols, err := tableColumns(ctx, db, "usuarios")
	if err != nil {
		return Capabilities{}, fmt.Errorf("failed to inspect usuarios: %w", err)
	}

	citaCols, err := tableColumns(ctx, db, "citas")
	if err != nil {
		return Capabilities{}, fmt.Errorf("failed to inspect citas: %w", err)
	}

	return FromColumns(userCols, citaCols), nil
}

// FromColumns derives the capability set from raw column lists.
func FromColumns(userCols, citaCols []string) Capabilities {
	users := columnSet(userCols)
	citas := columnSet(citaCols)

	return Capabilities{
		UserRUT:       users["rut"],
		UserBirthDate: users["fecha_nacimiento"],
		UserAddress:   users["direccion"],
		UserRegion:    users["region"],
		UserComuna:    users["comuna"],
		UserSpecialty: users["especialidad"],
		UserUpdatedAt: users["fecha_actualizacion"],
		CitaUsuarioID: citas["usuario_id"],
		CitaMedicoID:  citas["medico_id"],
	}
}

func tableColumns(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		AND table_name = $1
	`

	var cols []string
	if err := db.SelectContext(ctx, &cols, query, table); err != nil {
		return nil, err
	}
	return cols, nil
}

func columnSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}
