package securestore

import (
	"context"
	"encoding/json"
	"log/slog"
)

// GetJSON reads and unmarshals a typed value. The second return is false
// when no valid value (or default) is present or unmarshaling fails.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var out T
	raw := s.Get(ctx, key)
	if len(raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("Failed to unmarshal stored value", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return out, true
}

// SetJSON marshals and stores a typed value
func SetJSON[T any](ctx context.Context, s *Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.Set(ctx, key, raw)
	return nil
}

// JSONValidator returns a Validate function that requires the value to
// unmarshal into T and pass the supplied check
func JSONValidator[T any](check func(T) error) func([]byte) error {
	return func(raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if check != nil {
			return check(v)
		}
		return nil
	}
}
