package gwallet

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Named is implemented by every value that belongs to a registered
// resource type, including [Reference].
type Named interface {
	// ResourceName returns the registry name of the value's resource type.
	ResourceName() string
}

// Resource is a typed resource payload.
// Implementations use value receivers so the zero value of the type can
// report its name.
type Resource interface {
	Named
	// ResourceID returns the identifying field of the instance.
	ResourceID() string
}

// Validator is implemented by resources that can check their required fields.
type Validator interface {
	Validate() error
}

// ErrMissingField is returned by Validate when a required field is empty.
var ErrMissingField = errors.New("missing required field")

func validate(v any) error {
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

// Reference stands in for a resource instance inside a save-link payload.
// Only the id is serialized.
type Reference struct {
	ID string

	name string
}

// RefByName returns a reference to the resource named name.
func RefByName(name, id string) Reference {
	return Reference{ID: id, name: name}
}

// RefByType returns a reference to a resource of type T.
func RefByType[T Resource](id string) Reference {
	var zero T
	return Reference{ID: id, name: zero.ResourceName()}
}

// ResourceName implements [Named].
func (r Reference) ResourceName() string {
	return r.name
}

// MarshalJSON implements the [json.Marshaler] interface.
func (r Reference) MarshalJSON() ([]byte, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("reference to %q: id: %w", r.name, ErrMissingField)
	}
	return json.Marshal(struct {
		ID string `json:"id"`
	}{ID: r.ID})
}

// nameOf returns the resource name of T without an instance.
func nameOf[T Named]() string {
	var zero T
	return zero.ResourceName()
}
