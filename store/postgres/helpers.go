package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/field"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isDuplicateKey checks if a PostgreSQL error is a unique_violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func marshalFieldConfig(cfg field.Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal field config: %w", err)
	}
	return data, nil
}

func unmarshalFieldConfig(data []byte, cfg *field.Config) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal field config: %w", err)
	}
	return nil
}

// marshalCondition encodes a condition tree, nil in nil out.
func marshalCondition(x *condition.Expr) ([]byte, error) {
	if x == nil {
		return nil, nil
	}
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("marshal condition: %w", err)
	}
	return data, nil
}

func unmarshalCondition(data []byte) (*condition.Expr, error) {
	if len(data) == 0 {
		return nil, nil
	}
	x := new(condition.Expr)
	if err := json.Unmarshal(data, x); err != nil {
		return nil, fmt.Errorf("unmarshal condition: %w", err)
	}
	return x, nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return out, nil
}

func unmarshalData(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return out, nil
}
