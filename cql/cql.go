// Package cql implements a small textual query language over archetype
// filters: CONTAINS(a, b), EXACT(a), ALL(), negation with !, and the & / |
// combinators. It exists for debugging and tooling; programs use the filter
// package directly.
package cql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/filter"
	"github.com/arkhe-engine/arkhe/types"
)

type cqlOperator int

const (
	opAnd cqlOperator = iota
	opOr
)

var operatorMap = map[string]cqlOperator{"&": opAnd, "|": opOr}

// Capture tells the parser library how to transform a parsed string token
// into the operator type.
func (o *cqlOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("invalid operator")
	}
	operator, ok := operatorMap[s[0]]
	if !ok {
		return eris.New("invalid operator")
	}
	*o = operator
	return nil
}

type cqlComponent struct {
	Name string `@Ident`
}

type cqlAll struct{}

func (a *cqlAll) Capture(values []string) error {
	if values[0] == "ALL" && values[1] == "(" && values[2] == ")" {
		*a = cqlAll{}
	}
	return nil
}

type cqlNot struct {
	SubExpression *cqlValue `"!" @@`
}

type cqlExact struct {
	Components []*cqlComponent `"EXACT""(" (@@",")* @@ ")"`
}

type cqlContains struct {
	Components []*cqlComponent `"CONTAINS" "(" (@@",")* @@ ")"`
}

type cqlValue struct {
	All           *cqlAll      `@("ALL" "(" ")")`
	Exact         *cqlExact    `| @@`
	Contains      *cqlContains `| @@`
	Not           *cqlNot      `| @@`
	Subexpression *cqlTerm     `| "(" @@ ")"`
}

type cqlFactor struct {
	Base *cqlValue `@@`
}

type cqlOpFactor struct {
	Operator cqlOperator `@("&" | "|")`
	Factor   *cqlFactor  `@@`
}

type cqlTerm struct {
	Left  *cqlFactor     `@@`
	Right []*cqlOpFactor `@@*`
}

// Display

func (o cqlOperator) String() string {
	switch o {
	case opAnd:
		return "&"
	case opOr:
		return "|"
	}
	panic("unsupported operator")
}

func componentList(components []*cqlComponent) string {
	parameters := make([]string, len(components))
	for i, comp := range components {
		parameters[i] = comp.Name
	}
	return strings.Join(parameters, ", ")
}

func (a *cqlAll) String() string {
	return "ALL()"
}

func (e *cqlExact) String() string {
	return "EXACT(" + componentList(e.Components) + ")"
}

func (e *cqlContains) String() string {
	return "CONTAINS(" + componentList(e.Components) + ")"
}

func (v *cqlValue) String() string {
	switch {
	case v.Exact != nil:
		return v.Exact.String()
	case v.Contains != nil:
		return v.Contains.String()
	case v.All != nil:
		return v.All.String()
	case v.Not != nil:
		return "!(" + v.Not.SubExpression.String() + ")"
	case v.Subexpression != nil:
		return "(" + v.Subexpression.String() + ")"
	default:
		panic("logic error displaying CQL ast. Check the code in cql.go")
	}
}

func (f *cqlFactor) String() string {
	return f.Base.String()
}

func (o *cqlOpFactor) String() string {
	return fmt.Sprintf("%s %s", o.Operator, o.Factor)
}

func (t *cqlTerm) String() string {
	out := []string{t.Left.String()}
	for _, r := range t.Right {
		out = append(out, r.String())
	}
	return strings.Join(out, " ")
}

var internalCQLParser = participle.MustBuild[cqlTerm]()

// Resolver maps a component name written in a query to its id.
type Resolver func(componentName string) (types.ComponentID, error)

func resolveComponents(components []*cqlComponent, resolve Resolver) ([]types.ComponentID, error) {
	ids := make([]types.ComponentID, 0, len(components))
	for _, componentName := range components {
		id, err := resolve(componentName.Name)
		if err != nil {
			return nil, eris.Wrap(err, "")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func valueToComponentFilter(value *cqlValue, resolve Resolver) (filter.ComponentFilter, error) {
	switch {
	case value.Not != nil:
		resultFilter, err := valueToComponentFilter(value.Not.SubExpression, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Not(resultFilter), nil
	case value.Exact != nil:
		if len(value.Exact.Components) == 0 {
			return nil, eris.New("EXACT cannot have zero parameters")
		}
		ids, err := resolveComponents(value.Exact.Components, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Exact(ids...), nil
	case value.All != nil:
		return filter.All(), nil
	case value.Contains != nil:
		if len(value.Contains.Components) == 0 {
			return nil, eris.New("CONTAINS cannot have zero parameters")
		}
		ids, err := resolveComponents(value.Contains.Components, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Contains(ids...), nil
	case value.Subexpression != nil:
		return termToComponentFilter(value.Subexpression, resolve)
	default:
		return nil, eris.New("unknown error during conversion from CQL AST to ComponentFilter")
	}
}

func termToComponentFilter(term *cqlTerm, resolve Resolver) (filter.ComponentFilter, error) {
	if term.Left == nil {
		return nil, eris.New("not enough values in expression")
	}
	acc, err := valueToComponentFilter(term.Left.Base, resolve)
	if err != nil {
		return nil, err
	}
	for _, opFactor := range term.Right {
		resultFilter, err := valueToComponentFilter(opFactor.Factor.Base, resolve)
		if err != nil {
			return nil, err
		}
		switch opFactor.Operator {
		case opAnd:
			acc = filter.And(acc, resultFilter)
		case opOr:
			acc = filter.Or(acc, resultFilter)
		default:
			return nil, eris.New("invalid operator")
		}
	}
	return acc, nil
}

// Parse turns a query string into a ComponentFilter, resolving component
// names through resolve.
func Parse(cqlText string, resolve Resolver) (filter.ComponentFilter, error) {
	term, err := internalCQLParser.ParseString("", cqlText)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return termToComponentFilter(term, resolve)
}
