package store

import (
	"encoding/json"
	"fmt"

	"github.com/truthledger/truthledger/pkg/models"
)

// marshalScope/unmarshalScope, marshalValue/unmarshalValue, and
// marshalMap/unmarshalMap bridge the JSONB columns to their Go types.
// encoding/json is the stdlib choice here: no third-party JSON library
// appears anywhere in the retrieved pack, and database/pgx already
// accepts []byte for jsonb columns, so there is nothing an ecosystem
// library would add.

func marshalScope(s models.Scope) ([]byte, error) {
	if s == nil {
		s = models.Scope{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal scope: %w", err)
	}
	return b, nil
}

func unmarshalScope(b []byte) (models.Scope, error) {
	var s models.Scope
	if len(b) == 0 {
		return models.Scope{}, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal scope: %w", err)
	}
	return s, nil
}

func marshalValue(v models.ClaimValue) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal claim value: %w", err)
	}
	return b, nil
}

func unmarshalValue(b []byte) (models.ClaimValue, error) {
	var v models.ClaimValue
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("unmarshal claim value: %w", err)
	}
	return v, nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal map: %w", err)
	}
	return b, nil
}

func unmarshalMap(b []byte) (map[string]any, error) {
	m := map[string]any{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal map: %w", err)
	}
	return m, nil
}
