package store

import (
	"strings"

	"github.com/pkg/errors"
)

// Op is a filter operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpGt  Op = ">"
	OpLt  Op = "<"
	OpAnd Op = "AND"
	OpOr  Op = "OR"
)

// filterColumns lists the scalar note fields a filter may reference.
var filterColumns = map[string]string{
	"domain":     "domain",
	"message_id": "message_id",
	"updated_at": "updated_at",
	"title":      "title",
}

// Filter is a boolean predicate over scalar note fields.
// A nil *Filter matches every note.
type Filter struct {
	Op       Op
	Field    string
	Value    any
	Children []*Filter
}

// Eq matches notes whose field equals value.
func Eq(field string, value any) *Filter { return &Filter{Op: OpEq, Field: field, Value: value} }

// Ne matches notes whose field differs from value. NULL fields never match.
func Ne(field string, value any) *Filter { return &Filter{Op: OpNe, Field: field, Value: value} }

// Gt matches notes whose field sorts after value.
func Gt(field string, value any) *Filter { return &Filter{Op: OpGt, Field: field, Value: value} }

// Lt matches notes whose field sorts before value.
func Lt(field string, value any) *Filter { return &Filter{Op: OpLt, Field: field, Value: value} }

// And matches notes satisfying every child.
func And(children ...*Filter) *Filter { return &Filter{Op: OpAnd, Children: children} }

// Or matches notes satisfying any child.
func Or(children ...*Filter) *Filter { return &Filter{Op: OpOr, Children: children} }

// SQL renders the filter as a WHERE predicate. placeholder maps a 1-based argument
// position to the driver's placeholder syntax; offset is the number of arguments
// already bound before the predicate.
func (f *Filter) SQL(placeholder func(int) string, offset int) (string, []any, error) {
	args := []any{}
	clause, err := f.render(placeholder, offset, &args)
	if err != nil {
		return "", nil, err
	}
	return clause, args, nil
}

func (f *Filter) render(placeholder func(int) string, offset int, args *[]any) (string, error) {
	if f == nil {
		return "1 = 1", nil
	}

	switch f.Op {
	case OpAnd, OpOr:
		if len(f.Children) == 0 {
			if f.Op == OpAnd {
				return "1 = 1", nil
			}
			return "1 = 0", nil
		}
		parts := make([]string, 0, len(f.Children))
		for _, child := range f.Children {
			part, err := child.render(placeholder, offset, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, " "+string(f.Op)+" ") + ")", nil

	case OpEq, OpNe, OpGt, OpLt:
		column, ok := filterColumns[f.Field]
		if !ok {
			return "", errors.Errorf("unsupported filter field %q", f.Field)
		}
		switch f.Value.(type) {
		case string, int, int32, int64, float32, float64, bool:
		default:
			return "", errors.Errorf("unsupported filter value %T for field %q", f.Value, f.Field)
		}
		*args = append(*args, f.Value)
		return column + " " + string(f.Op) + " " + placeholder(offset+len(*args)), nil

	default:
		return "", errors.Errorf("unsupported filter operator %q", f.Op)
	}
}
