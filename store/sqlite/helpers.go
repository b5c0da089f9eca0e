package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/field"
)

// isUniqueViolation matches the driver's constraint error text; modernc's
// driver has no typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalFieldConfig(cfg field.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal field config: %w", err)
	}
	return string(data), nil
}

func unmarshalFieldConfig(data string, cfg *field.Config) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), cfg); err != nil {
		return fmt.Errorf("unmarshal field config: %w", err)
	}
	return nil
}

func marshalCondition(x *condition.Expr) (any, error) {
	if x == nil {
		return nil, nil
	}
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("marshal condition: %w", err)
	}
	return string(data), nil
}

func unmarshalCondition(data *string) (*condition.Expr, error) {
	if data == nil || *data == "" {
		return nil, nil
	}
	x := new(condition.Expr)
	if err := json.Unmarshal([]byte(*data), x); err != nil {
		return nil, fmt.Errorf("unmarshal condition: %w", err)
	}
	return x, nil
}

func marshalData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(out), nil
}

func unmarshalData(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return out, nil
}
