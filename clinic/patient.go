package clinic

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helioscare/fieldcrypt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("clinic: not found")

// Patient is the caller-facing shape: always plaintext. Callers never see
// envelopes or digests; the repository owns the transform.
type Patient struct {
	ID           string
	ClinicID     string
	FullName     string
	NationalID   string
	Phone        string
	Email        string
	Allergies    []string
	ClinicalData map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PatientRepository persists patients with their sensitive fields encrypted
// and their blind indexes maintained.
type PatientRepository struct {
	db    *sql.DB
	codec *fieldcrypt.Codec
}

func NewPatientRepository(db *sql.DB, codec *fieldcrypt.Codec) *PatientRepository {
	return &PatientRepository{db: db, codec: codec}
}

// Create inserts a new patient. The payload is fully transformed before the
// INSERT is issued; an encoding failure aborts the operation with no I/O.
func (r *PatientRepository) Create(ctx context.Context, p *Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	payload := r.toPayload(p)
	if err := r.codec.EncodePayload(fieldcrypt.KindPatient, payload); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (id, clinic_id, full_name, national_id, national_id_idx,
			phone, phone_idx, email, email_idx, allergies, clinical_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClinicID, p.FullName,
		textColumn(payload, "national_id"), textColumn(payload, "national_id_idx"),
		textColumn(payload, "phone"), textColumn(payload, "phone_idx"),
		textColumn(payload, "email"), textColumn(payload, "email_idx"),
		jsonColumn(payload, "allergies"), jsonColumn(payload, "clinical_data"),
		p.CreatedAt, p.UpdatedAt)
	return err
}

// Update rewrites the patient's mutable fields, re-encrypting and refreshing
// the blind indexes.
func (r *PatientRepository) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()

	payload := r.toPayload(p)
	if err := r.codec.EncodePayload(fieldcrypt.KindPatient, payload); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE patients SET clinic_id = ?, full_name = ?,
			national_id = ?, national_id_idx = ?,
			phone = ?, phone_idx = ?,
			email = ?, email_idx = ?,
			allergies = ?, clinical_data = ?, updated_at = ?
		WHERE id = ?`,
		p.ClinicID, p.FullName,
		textColumn(payload, "national_id"), textColumn(payload, "national_id_idx"),
		textColumn(payload, "phone"), textColumn(payload, "phone_idx"),
		textColumn(payload, "email"), textColumn(payload, "email_idx"),
		jsonColumn(payload, "allergies"), jsonColumn(payload, "clinical_data"),
		p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts or updates by primary key. The create branch and the
// update branch are transformed independently: they carry different field
// sets (timestamps differ) and each application must stay idempotent.
func (r *PatientRepository) Upsert(ctx context.Context, p *Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	create := r.toPayload(p)
	update := r.toPayload(p)
	if err := r.codec.EncodeUpsert(fieldcrypt.KindPatient, create, update); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (id, clinic_id, full_name, national_id, national_id_idx,
			phone, phone_idx, email, email_idx, allergies, clinical_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			clinic_id = ?, full_name = ?,
			national_id = ?, national_id_idx = ?,
			phone = ?, phone_idx = ?,
			email = ?, email_idx = ?,
			allergies = ?, clinical_data = ?, updated_at = ?`,
		p.ID, p.ClinicID, p.FullName,
		textColumn(create, "national_id"), textColumn(create, "national_id_idx"),
		textColumn(create, "phone"), textColumn(create, "phone_idx"),
		textColumn(create, "email"), textColumn(create, "email_idx"),
		jsonColumn(create, "allergies"), jsonColumn(create, "clinical_data"),
		p.CreatedAt, p.UpdatedAt,
		p.ClinicID, p.FullName,
		textColumn(update, "national_id"), textColumn(update, "national_id_idx"),
		textColumn(update, "phone"), textColumn(update, "phone_idx"),
		textColumn(update, "email"), textColumn(update, "email_idx"),
		jsonColumn(update, "allergies"), jsonColumn(update, "clinical_data"),
		p.UpdatedAt)
	return err
}

const patientColumns = `id, clinic_id, full_name, national_id, phone, email,
	allergies, clinical_data, created_at, updated_at`

// GetByID loads one patient and decrypts its protected fields.
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)
	return r.scanPatient(row)
}

// FindByPhone looks a patient up by phone number through the blind index.
// The candidate value may arrive in any surface form; the codec applies the
// registry's digits-only rule before hashing, so "(11) 99999-0000" and
// "11 99999 0000" find the same row.
func (r *PatientRepository) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	return r.findByBlindIndex(ctx, "phone", "phone_idx", phone)
}

// FindByNationalID looks a patient up by national ID through the blind index.
func (r *PatientRepository) FindByNationalID(ctx context.Context, nationalID string) (*Patient, error) {
	return r.findByBlindIndex(ctx, "national_id", "national_id_idx", nationalID)
}

// FindByEmail looks a patient up by email through the blind index.
func (r *PatientRepository) FindByEmail(ctx context.Context, email string) (*Patient, error) {
	return r.findByBlindIndex(ctx, "email", "email_idx", email)
}

func (r *PatientRepository) findByBlindIndex(ctx context.Context, field, column, candidate string) (*Patient, error) {
	if !r.codec.Enabled() {
		// Disabled policy: rows hold plaintext, so equality works on the
		// protected column directly.
		row := r.db.QueryRowContext(ctx,
			`SELECT `+patientColumns+` FROM patients WHERE `+field+` = ?`, candidate)
		return r.scanPatient(row)
	}
	digest, err := r.codec.BlindIndexFor(fieldcrypt.KindPatient, field, candidate)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE `+column+` = ?`, digest)
	return r.scanPatient(row)
}

// ListByClinic returns all patients of a clinic, decrypted. A decrypt
// failure on any row fails the whole listing; see Codec.DecodeRecords.
func (r *PatientRepository) ListByClinic(ctx context.Context, clinicID string) ([]*Patient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE clinic_id = ? ORDER BY created_at`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []fieldcrypt.Payload
	var patients []*Patient
	for rows.Next() {
		p, record, err := scanPatientRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Decode after the result set is fully materialized, never lazily.
	if err := r.codec.DecodeRecords(fieldcrypt.KindPatient, records); err != nil {
		return nil, err
	}
	for i, p := range patients {
		if err := applyPatientRecord(p, records[i]); err != nil {
			return nil, err
		}
	}
	return patients, nil
}

// toPayload builds the mutable payload the codec transforms. Only protected
// fields and their companions live here; plain columns are bound directly.
func (r *PatientRepository) toPayload(p *Patient) fieldcrypt.Payload {
	payload := fieldcrypt.Payload{}
	if p.NationalID != "" {
		payload["national_id"] = p.NationalID
	}
	if p.Phone != "" {
		payload["phone"] = p.Phone
	}
	if p.Email != "" {
		payload["email"] = p.Email
	}
	if p.Allergies != nil {
		payload["allergies"] = p.Allergies
	}
	if p.ClinicalData != nil {
		payload["clinical_data"] = p.ClinicalData
	}
	return payload
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatientRow(row rowScanner) (*Patient, fieldcrypt.Payload, error) {
	var p Patient
	var nationalID, phone, email, allergies, clinicalData sql.NullString
	err := row.Scan(&p.ID, &p.ClinicID, &p.FullName, &nationalID, &phone, &email,
		&allergies, &clinicalData, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	record := fieldcrypt.Payload{}
	setIfValid(record, "national_id", nationalID)
	setIfValid(record, "phone", phone)
	setIfValid(record, "email", email)
	setIfValid(record, "allergies", allergies)
	setIfValid(record, "clinical_data", clinicalData)
	return &p, record, nil
}

func (r *PatientRepository) scanPatient(row rowScanner) (*Patient, error) {
	p, record, err := scanPatientRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.codec.DecodeRecord(fieldcrypt.KindPatient, record); err != nil {
		return nil, err
	}
	if err := applyPatientRecord(p, record); err != nil {
		return nil, err
	}
	return p, nil
}

// applyPatientRecord moves decoded record values back onto the struct.
// String-list and JSON fields may surface either as decoded values (row was
// encrypted) or as raw JSON text (legacy plaintext row); both are handled.
func applyPatientRecord(p *Patient, record fieldcrypt.Payload) error {
	if v, ok := record["national_id"].(string); ok {
		p.NationalID = v
	}
	if v, ok := record["phone"].(string); ok {
		p.Phone = v
	}
	if v, ok := record["email"].(string); ok {
		p.Email = v
	}
	if v, ok := record["allergies"]; ok {
		switch value := v.(type) {
		case []string:
			p.Allergies = value
		case string:
			if err := json.Unmarshal([]byte(value), &p.Allergies); err != nil {
				return fmt.Errorf("parsing allergies: %w", err)
			}
		}
	}
	if v, ok := record["clinical_data"]; ok {
		switch value := v.(type) {
		case map[string]any:
			p.ClinicalData = value
		case string:
			if err := json.Unmarshal([]byte(value), &p.ClinicalData); err != nil {
				return fmt.Errorf("parsing clinical data: %w", err)
			}
		default:
			// JSON shape decodes to any; a non-object payload is a schema
			// violation for patients.
			return fmt.Errorf("clinical data: expected object, got %T", v)
		}
	}
	return nil
}

// textColumn binds a scalar payload field to a nullable TEXT column.
func textColumn(payload fieldcrypt.Payload, name string) any {
	v, ok := payload[name]
	if !ok || v == nil {
		return nil
	}
	return v
}

// jsonColumn binds a list/JSON payload field to a nullable TEXT column.
// With an enabled codec the value is already an envelope string; with a
// disabled codec the plaintext value is stored as JSON text.
func jsonColumn(payload fieldcrypt.Payload, name string) any {
	v, ok := payload[name]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		// toPayload only places JSON-serializable values here.
		return nil
	}
	return string(raw)
}

func setIfValid(record fieldcrypt.Payload, name string, v sql.NullString) {
	if v.Valid {
		record[name] = v.String
	}
}
