package fieldcrypt

import "fmt"

// Kind enumerates every persisted entity type the clinic backend knows
// about. Being a closed enum rather than a free-form string means a missing
// or mistyped kind is a compile-time problem, not a runtime surprise.
type Kind uint8

const (
	KindClinic Kind = iota
	KindPatient
	KindAppointment
	KindClinicalNote
	KindMessage
	KindProcedure
)

func (k Kind) String() string {
	switch k {
	case KindClinic:
		return "clinic"
	case KindPatient:
		return "patient"
	case KindAppointment:
		return "appointment"
	case KindClinicalNote:
		return "clinical_note"
	case KindMessage:
		return "message"
	case KindProcedure:
		return "procedure"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Shape describes the value shape of a sensitive field, which selects the
// encryption path: scalars go through Encrypt, string lists and structured
// JSON go through EncryptJSON.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeStringList
	ShapeJSON
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeStringList:
		return "string_list"
	case ShapeJSON:
		return "json"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// FieldConfig declares one sensitive field of an entity: its payload name,
// its value shape, and optionally the name of the companion blind-index
// field together with the normalization rule both write-time and query-time
// hashing must share.
type FieldConfig struct {
	Name       string
	Shape      Shape
	BlindIndex string    // companion field name; empty means not searchable
	Normalize  Normalize // required whenever BlindIndex is set
}

// EntityConfig groups the sensitive fields of one entity kind.
type EntityConfig struct {
	Kind   Kind
	Fields []FieldConfig
}

// Registry is the static table mapping entity kinds to their sensitive
// fields. It is built once at startup, never mutated, and safe to share
// across concurrent operations without synchronization.
type Registry struct {
	fields map[Kind][]FieldConfig
}

// NewRegistry validates and indexes the declared entity configurations.
// A blind index without a normalization rule is rejected: without a shared
// canonical form, write-time and query-time digests would disagree.
func NewRegistry(entities ...EntityConfig) (*Registry, error) {
	fields := make(map[Kind][]FieldConfig, len(entities))
	for _, entity := range entities {
		if _, dup := fields[entity.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate declaration for %s", ErrInvalidField, entity.Kind)
		}
		for _, fc := range entity.Fields {
			if fc.Name == "" {
				return nil, NewFieldConfigError(entity.Kind, fc.Name, "field name is empty")
			}
			if fc.BlindIndex != "" && fc.Normalize == NormalizeNone {
				return nil, NewFieldConfigError(entity.Kind, fc.Name,
					"blind index requires a normalization rule")
			}
			if fc.BlindIndex != "" && fc.Shape != ShapeScalar {
				return nil, NewFieldConfigError(entity.Kind, fc.Name,
					"blind index is only supported on scalar fields")
			}
			if fc.BlindIndex == fc.Name && fc.BlindIndex != "" {
				return nil, NewFieldConfigError(entity.Kind, fc.Name,
					"blind index field must differ from the source field")
			}
		}
		fields[entity.Kind] = entity.Fields
	}
	return &Registry{fields: fields}, nil
}

// FieldsFor returns the sensitive fields of a kind, or nil when the kind has
// none. The nil answer is the fast path: most entities in the system carry
// no protected fields and must not pay any crypto overhead.
func (r *Registry) FieldsFor(kind Kind) []FieldConfig {
	return r.fields[kind]
}

// DefaultRegistry returns the registry for the clinic schema. The table is
// fixed at build time; changing a normalization rule or blind-index column
// here invalidates existing stored digests, so treat edits as migrations.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		EntityConfig{
			Kind: KindPatient,
			Fields: []FieldConfig{
				{Name: "national_id", Shape: ShapeScalar, BlindIndex: "national_id_idx", Normalize: NormalizeDigitsOnly},
				{Name: "phone", Shape: ShapeScalar, BlindIndex: "phone_idx", Normalize: NormalizeDigitsOnly},
				{Name: "email", Shape: ShapeScalar, BlindIndex: "email_idx", Normalize: NormalizeTrimLower},
				{Name: "allergies", Shape: ShapeStringList},
				{Name: "clinical_data", Shape: ShapeJSON},
			},
		},
		EntityConfig{
			Kind: KindAppointment,
			Fields: []FieldConfig{
				{Name: "notes", Shape: ShapeScalar},
			},
		},
		EntityConfig{
			Kind: KindClinicalNote,
			Fields: []FieldConfig{
				{Name: "body", Shape: ShapeScalar},
				{Name: "payload", Shape: ShapeJSON},
			},
		},
		EntityConfig{
			Kind: KindMessage,
			Fields: []FieldConfig{
				{Name: "sender_phone", Shape: ShapeScalar, BlindIndex: "sender_phone_idx", Normalize: NormalizeDigitsOnly},
				{Name: "body", Shape: ShapeScalar},
			},
		},
		EntityConfig{
			Kind: KindProcedure,
			Fields: []FieldConfig{
				{Name: "notes", Shape: ShapeScalar},
			},
		},
		// KindClinic intentionally absent: clinics carry no protected
		// fields, so FieldsFor returns nil and the codec skips them.
	)
	if err != nil {
		// The default table is static; a validation failure here is a
		// programming error caught by the registry tests.
		panic("fieldcrypt: invalid default registry: " + err.Error())
	}
	return r
}
