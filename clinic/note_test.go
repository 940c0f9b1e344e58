package clinic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscare/fieldcrypt"
	"github.com/helioscare/fieldcrypt/clinic"
)

func TestNoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, notes, _, db := newTestRepos(t)

	note := &clinic.ClinicalNote{
		PatientID: "patient-1",
		AuthorID:  "dr-house",
		Body:      "Paciente relata dor de cabeça há 3 dias.",
		Payload: map[string]any{
			"icd10":    "R51",
			"severity": "moderate",
		},
	}
	require.NoError(t, notes.Create(ctx, note))

	var storedBody, storedPayload string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT body, payload FROM clinical_notes WHERE id = ?`, note.ID).
		Scan(&storedBody, &storedPayload))
	assert.NotContains(t, storedBody, "cabeça")
	assert.NotContains(t, storedPayload, "R51")

	loaded, err := notes.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.Body, loaded.Body)
	assert.Equal(t, note.Payload, loaded.Payload)
}

func TestNoteBatchCreateAllOrNothing(t *testing.T) {
	ctx := context.Background()
	_, notes, _, db := newTestRepos(t)

	good := &clinic.ClinicalNote{PatientID: "patient-1", Body: "ok"}
	bad := &clinic.ClinicalNote{
		PatientID: "patient-1",
		Body:      "also ok",
		Payload:   map[string]any{"bad": make(chan int)},
	}
	err := notes.BatchCreate(ctx, good, bad)
	require.Error(t, err)
	assert.True(t, fieldcrypt.IsEncodingError(err))

	// The transform failed before any I/O: no partial writes.
	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clinical_notes`).Scan(&count))
	assert.Zero(t, count)
}

func TestNoteListByPatient(t *testing.T) {
	ctx := context.Background()
	_, notes, _, _ := newTestRepos(t)

	batch := []*clinic.ClinicalNote{
		{PatientID: "patient-1", AuthorID: "a", Body: "first visit"},
		{PatientID: "patient-1", AuthorID: "b", Body: "follow up"},
		{PatientID: "patient-2", AuthorID: "a", Body: "other patient"},
	}
	require.NoError(t, notes.BatchCreate(ctx, batch...))

	list, err := notes.ListByPatient(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	bodies := []string{list[0].Body, list[1].Body}
	assert.ElementsMatch(t, []string{"first visit", "follow up"}, bodies)
}

func TestNoteListFailsOnCorruptedRow(t *testing.T) {
	ctx := context.Background()
	_, notes, _, db := newTestRepos(t)

	note := &clinic.ClinicalNote{PatientID: "patient-1", Body: "intact"}
	require.NoError(t, notes.Create(ctx, note))

	// A well-formed envelope sealed under a different key cannot be opened.
	foreign := fieldcrypt.NewTestEngine(t)
	envelope, err := foreign.Encrypt("unreadable")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO clinical_notes (id, patient_id, author_id, body, created_at)
		VALUES ('broken', 'patient-1', 'a', ?, CURRENT_TIMESTAMP)`, envelope)
	require.NoError(t, err)

	_, err = notes.ListByPatient(ctx, "patient-1")
	require.Error(t, err)
	assert.True(t, fieldcrypt.IsOperationError(err))
}
