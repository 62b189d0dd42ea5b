package models

import (
	"encoding/json"
	"fmt"
)

func scanJSON(value interface{}, dest interface{}, name string) (bool, error) {
	if value == nil {
		return false, nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return false, fmt.Errorf("unsupported type %T for %s", value, name)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return true, nil
}
