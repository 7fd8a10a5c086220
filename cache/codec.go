package cache

import (
	"encoding/json"
	"fmt"
)

// Codec converts values to and from the textual form stored in both tiers.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec encodes values as JSON.
type JSONCodec struct{}

// Marshal encodes v. Failures are reported as ErrSerialization.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal decodes data into v. Failures are reported as ErrSerialization.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

var _ Codec = JSONCodec{}
