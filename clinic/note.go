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

// ClinicalNote is a free-form medical note plus structured clinical data
// attached to a patient. Both the body and the structured payload are
// protected fields; neither is searchable.
type ClinicalNote struct {
	ID        string
	PatientID string
	AuthorID  string
	Body      string
	Payload   map[string]any
	CreatedAt time.Time
}

type NoteRepository struct {
	db    *sql.DB
	codec *fieldcrypt.Codec
}

func NewNoteRepository(db *sql.DB, codec *fieldcrypt.Codec) *NoteRepository {
	return &NoteRepository{db: db, codec: codec}
}

// Create inserts one note.
func (r *NoteRepository) Create(ctx context.Context, note *ClinicalNote) error {
	return r.BatchCreate(ctx, note)
}

// BatchCreate inserts several notes in one transaction. The whole batch is
// transformed before the transaction opens; one bad payload means nothing
// is written.
func (r *NoteRepository) BatchCreate(ctx context.Context, notes ...*ClinicalNote) error {
	now := time.Now().UTC()
	payloads := make([]fieldcrypt.Payload, len(notes))
	for i, note := range notes {
		if note.ID == "" {
			note.ID = uuid.NewString()
		}
		note.CreatedAt = now
		payloads[i] = notePayload(note)
	}

	if err := r.codec.EncodePayloads(fieldcrypt.KindClinicalNote, payloads...); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, note := range notes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clinical_notes (id, patient_id, author_id, body, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			note.ID, note.PatientID, note.AuthorID,
			textColumn(payloads[i], "body"), jsonColumn(payloads[i], "payload"),
			note.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID loads and decrypts one note.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*ClinicalNote, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, author_id, body, payload, created_at
		FROM clinical_notes WHERE id = ?`, id)
	note, record, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.codec.DecodeRecord(fieldcrypt.KindClinicalNote, record); err != nil {
		return nil, err
	}
	if err := applyNoteRecord(note, record); err != nil {
		return nil, err
	}
	return note, nil
}

// ListByPatient returns all notes of a patient, decrypted after the result
// set is fully materialized.
func (r *NoteRepository) ListByPatient(ctx context.Context, patientID string) ([]*ClinicalNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, author_id, body, payload, created_at
		FROM clinical_notes WHERE patient_id = ? ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*ClinicalNote
	var records []fieldcrypt.Payload
	for rows.Next() {
		note, record, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.codec.DecodeRecords(fieldcrypt.KindClinicalNote, records); err != nil {
		return nil, err
	}
	for i, note := range notes {
		if err := applyNoteRecord(note, records[i]); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

func notePayload(note *ClinicalNote) fieldcrypt.Payload {
	payload := fieldcrypt.Payload{}
	if note.Body != "" {
		payload["body"] = note.Body
	}
	if note.Payload != nil {
		payload["payload"] = note.Payload
	}
	return payload
}

func scanNote(row rowScanner) (*ClinicalNote, fieldcrypt.Payload, error) {
	var note ClinicalNote
	var body, payload sql.NullString
	err := row.Scan(&note.ID, &note.PatientID, &note.AuthorID, &body, &payload, &note.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	record := fieldcrypt.Payload{}
	setIfValid(record, "body", body)
	setIfValid(record, "payload", payload)
	return &note, record, nil
}

func applyNoteRecord(note *ClinicalNote, record fieldcrypt.Payload) error {
	if v, ok := record["body"].(string); ok {
		note.Body = v
	}
	if v, ok := record["payload"]; ok {
		switch value := v.(type) {
		case map[string]any:
			note.Payload = value
		case string:
			if err := json.Unmarshal([]byte(value), &note.Payload); err != nil {
				return fmt.Errorf("parsing note payload: %w", err)
			}
		default:
			return fmt.Errorf("note payload: expected object, got %T", v)
		}
	}
	return nil
}
