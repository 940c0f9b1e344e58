package fieldcrypt

import "encoding/json"

// Serializer converts JSON-shaped field values to and from bytes before
// encryption and after decryption. The default JSONSerializer is suitable
// for all shapes the registry declares; a custom implementation can be
// injected with WithSerializer for callers with stricter canonicalization
// needs.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// JSONSerializer implements Serializer with encoding/json. Round trips
// preserve structure and values; map key ordering is not guaranteed.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
