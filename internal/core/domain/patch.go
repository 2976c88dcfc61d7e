package domain

import (
	"encoding/json"
	"strings"
)

// Nullable is a field that can be left unset, explicitly cleared, or set
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a set, non-null value
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: v}
}

// Null returns an explicit null
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true, Null: true}
}

// ProjectPatch is a partial update. Nil pointers and unset Nullables are
// left out of the request so the server keeps their current value.
type ProjectPatch struct {
	Name        *string
	Description *string
	MainImageID Nullable[string]
}

// IsEmpty reports whether the patch would change nothing
func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && !p.MainImageID.Set
}

// Validate checks the patch locally
func (p ProjectPatch) Validate() error {
	if p.IsEmpty() {
		return NewValidationError("Nothing to update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return NewValidationError("Name is required")
	}
	if p.MainImageID.Set && !p.MainImageID.Null && strings.TrimSpace(p.MainImageID.Value) == "" {
		return NewValidationError("Main image id is empty")
	}
	return nil
}

// MarshalJSON writes only the fields that are set; a cleared main image is
// sent as an explicit null
func (p ProjectPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if p.Name != nil {
		body["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.MainImageID.Set {
		if p.MainImageID.Null {
			body["main_image_id"] = nil
		} else {
			body["main_image_id"] = p.MainImageID.Value
		}
	}
	return json.Marshal(body)
}
