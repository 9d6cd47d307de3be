package core

import (
	"encoding/json"
	"fmt"
)

// SerializeMetadata converts document metadata to its stored form.
// A nil map yields nil (stored as NULL). Any non-nil map, including an empty
// one, yields its JSON text so that "no metadata" and "{}" stay distinct.
func SerializeMetadata(metadata map[string]any) (*string, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	s := string(data)
	return &s, nil
}

// DeserializeMetadata is the inverse of SerializeMetadata.
func DeserializeMetadata(serialized *string) (map[string]any, error) {
	if serialized == nil {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(*serialized), &metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return metadata, nil
}
