package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/siherrmann/kgraph/helper"
)

// Metadata holds free-form attributes of resources and graph edges.
// It is stored in a NOT NULL JSONB column, so a nil map is written as an empty object.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal returns the JSON object of m, `{}` when m is nil.
func (m Metadata) Marshal() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Unmarshal reads JSON bytes, JSON text or a Metadata value.
// Some drivers return JSONB columns as text, others as bytes.
func (m *Metadata) Unmarshal(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return helper.NewError("metadata scan", fmt.Errorf("%w: unsupported type %T", helper.ErrInvalidParameter, value))
	}

	parsed := Metadata{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return helper.NewError("metadata unmarshal", err)
	}
	if parsed == nil {
		// JSON null
		parsed = Metadata{}
	}
	*m = parsed
	return nil
}
