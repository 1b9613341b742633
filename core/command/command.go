// Package command synthesises parameterized SQL commands from a field map and
// a dialect. Structural command shapes are cached per operation signature;
// parameter values are bound fresh on every call.
package command

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
)

// UpdateCriteria selects the columns constraining an UPDATE's WHERE clause.
// The order matters: criteria up to ChangedFields qualify for the narrow
// update path.
type UpdateCriteria int

const (
	// CriteriaDefault is key plus row version when the map has one, otherwise
	// CriteriaChangedFields.
	CriteriaDefault UpdateCriteria = iota
	CriteriaKeyOnly
	CriteriaChangedFields
	CriteriaAllFields
)

func (c UpdateCriteria) String() string {
	switch c {
	case CriteriaKeyOnly:
		return "key-only"
	case CriteriaChangedFields:
		return "changed-fields"
	case CriteriaAllFields:
		return "all-fields"
	}
	return "default"
}

// UpdateAffect selects the columns an UPDATE writes.
type UpdateAffect int

const (
	AffectChangedFields UpdateAffect = iota
	AffectAllFields
)

func (a UpdateAffect) String() string {
	if a == AffectAllFields {
		return "all-fields"
	}
	return "changed-fields"
}

// SelectBack controls whether a save re-reads the row it wrote.
type SelectBack int

const (
	// SelectBackDefault re-reads only when the database generates values.
	SelectBackDefault SelectBack = iota
	SelectBackNone
	SelectBackAllFields
)

func (s SelectBack) String() string {
	switch s {
	case SelectBackNone:
		return "none"
	case SelectBackAllFields:
		return "all-fields"
	}
	return "default"
}

// Parameter is one bound argument of a Command.
type Parameter struct {
	Name   string // without marker
	Column string // storage name, empty for free parameters
	Type   mapping.DataType
	Size   int // -1 when unbounded or unknown
	Value  any
}

// Command is a ready to execute statement.
type Command struct {
	Text   string
	Kind   dialect.CommandKind
	Params []Parameter
	// RowsAffectedColumn names the first result column of a batched update
	// that reports the UPDATE's affected-row count.
	RowsAffectedColumn string
}

// Args returns the arguments to pass to ExecContext or QueryContext.
func (c *Command) Args(d dialect.Dialect) []any {
	args := make([]any, len(c.Params))
	for i, p := range c.Params {
		v := d.BindValue(p.Type, p.Value)
		if d.UseNamedParameters() {
			args[i] = sql.Named(p.Name, v)
		} else {
			args[i] = v
		}
	}
	return args
}

func (c *Command) String() string {
	if len(c.Params) == 0 {
		return c.Text
	}
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = fmt.Sprintf("%s=%v", p.Name, p.Value)
	}
	return c.Text + " [" + strings.Join(names, ", ") + "]"
}
