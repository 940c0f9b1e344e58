package fieldcrypt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscare/fieldcrypt"
)

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name     string
		entities []fieldcrypt.EntityConfig
		wantErr  string
	}{
		{
			name: "valid",
			entities: []fieldcrypt.EntityConfig{{
				Kind: fieldcrypt.KindPatient,
				Fields: []fieldcrypt.FieldConfig{
					{Name: "phone", Shape: fieldcrypt.ShapeScalar, BlindIndex: "phone_idx", Normalize: fieldcrypt.NormalizeDigitsOnly},
				},
			}},
		},
		{
			name: "blind index without normalize",
			entities: []fieldcrypt.EntityConfig{{
				Kind: fieldcrypt.KindPatient,
				Fields: []fieldcrypt.FieldConfig{
					{Name: "phone", Shape: fieldcrypt.ShapeScalar, BlindIndex: "phone_idx"},
				},
			}},
			wantErr: "normalization rule",
		},
		{
			name: "blind index on json shape",
			entities: []fieldcrypt.EntityConfig{{
				Kind: fieldcrypt.KindPatient,
				Fields: []fieldcrypt.FieldConfig{
					{Name: "data", Shape: fieldcrypt.ShapeJSON, BlindIndex: "data_idx", Normalize: fieldcrypt.NormalizeTrimLower},
				},
			}},
			wantErr: "scalar",
		},
		{
			name: "empty field name",
			entities: []fieldcrypt.EntityConfig{{
				Kind:   fieldcrypt.KindPatient,
				Fields: []fieldcrypt.FieldConfig{{Shape: fieldcrypt.ShapeScalar}},
			}},
			wantErr: "empty",
		},
		{
			name: "duplicate kind",
			entities: []fieldcrypt.EntityConfig{
				{Kind: fieldcrypt.KindPatient},
				{Kind: fieldcrypt.KindPatient},
			},
			wantErr: "duplicate",
		},
		{
			name: "blind index shadows source field",
			entities: []fieldcrypt.EntityConfig{{
				Kind: fieldcrypt.KindPatient,
				Fields: []fieldcrypt.FieldConfig{
					{Name: "phone", Shape: fieldcrypt.ShapeScalar, BlindIndex: "phone", Normalize: fieldcrypt.NormalizeDigitsOnly},
				},
			}},
			wantErr: "differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := fieldcrypt.NewRegistry(tt.entities...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, registry)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, fieldcrypt.ErrInvalidField)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFieldsForFastPath(t *testing.T) {
	registry := fieldcrypt.DefaultRegistry()

	// Clinics carry no protected fields: the nil answer lets the codec
	// skip them without touching crypto.
	assert.Nil(t, registry.FieldsFor(fieldcrypt.KindClinic))

	fields := registry.FieldsFor(fieldcrypt.KindPatient)
	require.NotEmpty(t, fields)

	var phone *fieldcrypt.FieldConfig
	for i := range fields {
		if fields[i].Name == "phone" {
			phone = &fields[i]
		}
	}
	require.NotNil(t, phone)
	assert.Equal(t, "phone_idx", phone.BlindIndex)
	assert.Equal(t, fieldcrypt.NormalizeDigitsOnly, phone.Normalize)
}

func TestKindAndShapeStrings(t *testing.T) {
	assert.Equal(t, "patient", fieldcrypt.KindPatient.String())
	assert.Equal(t, "clinical_note", fieldcrypt.KindClinicalNote.String())
	assert.Equal(t, "scalar", fieldcrypt.ShapeScalar.String())
	assert.Equal(t, "string_list", fieldcrypt.ShapeStringList.String())
	assert.Equal(t, "digits_only", fieldcrypt.NormalizeDigitsOnly.String())
}
