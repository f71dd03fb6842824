package manage

import (
	"errors"
	"fmt"

	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

// ErrUnsupportedResource is matched by every UnsupportedResourceError.
var ErrUnsupportedResource = errors.New("unsupported resource kind")

// UnsupportedResourceError is returned, without contacting the
// controller, when an operation receives a resource variant it cannot
// address.
type UnsupportedResourceError struct {
	Operation string
	Kind      resource.Kind
}

func (e *UnsupportedResourceError) Error() string {
	return fmt.Sprintf("%s: %s for %s", e.Operation, ErrUnsupportedResource, e.Kind)
}

func (e *UnsupportedResourceError) Is(target error) bool {
	return target == ErrUnsupportedResource
}

// ProtocolError reports a controller response that violates the wire
// contract, such as a malformed server id.
type ProtocolError struct {
	Operation string
	Field     string
	Value     string
	Err       error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol violation in field %s (%q): %v", e.Operation, e.Field, e.Value, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
