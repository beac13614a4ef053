package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoot means the document has no root element or its tag is not Format.
	ErrInvalidRoot = errors.New("schema: root element should be 'Format'")

	ErrMissingAttribute = errors.New("schema: missing attribute")
	ErrInvalidValue     = errors.New("schema: invalid value")
	ErrNotFound         = errors.New("schema: not found")
)

// MissingAttributeError reports a required attribute absent from an element.
type MissingAttributeError struct {
	Element   string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("schema: can't find attribute '%s' in node %s", e.Attribute, e.Element)
}

func (e *MissingAttributeError) Is(target error) bool { return target == ErrMissingAttribute }

// InvalidValueError reports an attribute value that cannot be interpreted.
type InvalidValueError struct {
	Context string
	Value   string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("schema: bad %s %q", e.Context, e.Value)
}

func (e *InvalidValueError) Is(target error) bool { return target == ErrInvalidValue }

// NotFoundError reports a query for something the schema does not declare.
type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	if e.ID < 0 {
		return fmt.Sprintf("schema: did not find %s", e.Kind)
	}
	return fmt.Sprintf("schema: did not find %s for id %d", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
