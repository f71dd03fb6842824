// Package permission is the gate command layers consult before calling
// into the management facade. The facade itself never authorizes.
package permission

import (
	"fmt"
	"slices"
)

type Permission string

const (
	CloudCommand   Permission = "atomic.cloud.command.cloud"
	DisposeCommand Permission = "atomic.cloud.command.dispose"
)

// Permissible is whoever issues a command.
type Permissible interface {
	HasPermission(permission string) bool
	IsOperator() bool
}

// Check reports whether p may use the permission. Operators pass every
// check.
func (perm Permission) Check(p Permissible) bool {
	return p.HasPermission(string(perm)) || p.IsOperator()
}

// Require is Check returning a DeniedError.
func (perm Permission) Require(p Permissible) error {
	if perm.Check(p) {
		return nil
	}
	return &DeniedError{Permission: perm}
}

type DeniedError struct {
	Permission Permission
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("missing permission %s", e.Permission)
}

// Grants is a static Permissible built from configuration.
type Grants struct {
	Name        string
	Permissions []string
	Operator    bool
}

func (g Grants) HasPermission(permission string) bool {
	return slices.Contains(g.Permissions, permission)
}

func (g Grants) IsOperator() bool { return g.Operator }
