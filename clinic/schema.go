// Package clinic contains the per-entity repositories of the clinic backend
// that carry protected fields. Each repository applies the fieldcrypt codec
// explicitly at its own storage boundary: encode before the INSERT/UPDATE is
// issued, decode after the result set is fully materialized. Equality search
// on protected columns goes through the companion blind-index column.
package clinic

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS patients (
	id              TEXT PRIMARY KEY,
	clinic_id       TEXT NOT NULL,
	full_name       TEXT NOT NULL,
	national_id     TEXT,
	national_id_idx TEXT,
	phone           TEXT,
	phone_idx       TEXT,
	email           TEXT,
	email_idx       TEXT,
	allergies       TEXT,
	clinical_data   TEXT,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patients_clinic ON patients(clinic_id);
CREATE INDEX IF NOT EXISTS idx_patients_national_id ON patients(national_id_idx);
CREATE INDEX IF NOT EXISTS idx_patients_phone ON patients(phone_idx);
CREATE INDEX IF NOT EXISTS idx_patients_email ON patients(email_idx);

CREATE TABLE IF NOT EXISTS clinical_notes (
	id         TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL REFERENCES patients(id),
	author_id  TEXT NOT NULL,
	body       TEXT,
	payload    TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_patient ON clinical_notes(patient_id);
`

// Migrate creates the clinic tables and the blind-index lookup indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("applying clinic schema: %w", err)
	}
	return nil
}
