package channel

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ArgsMap stores handler arguments as a JSON column
type ArgsMap map[string]string

// Value implements driver.Valuer
func (m ArgsMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *ArgsMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into ArgsMap", value)
	}
}
