package catalog

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// DefaultFilterExpr selects the products shown in stock views.
const DefaultFilterExpr = "product.showInStock"

// ProductFilter decides which catalog products the ledger evaluates.
// The expression sees one variable, product, with the keys id, name, unit,
// category, showInStock and salesBasedRawCalc.
type ProductFilter struct {
	expr    string
	program cel.Program
}

// NewProductFilter compiles expr. An empty expression means DefaultFilterExpr.
func NewProductFilter(expr string) (*ProductFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultFilterExpr
	}

	env, err := cel.NewEnv(
		cel.Variable("product", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile product filter %q: %w", expr, iss.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build product filter %q: %w", expr, err)
	}

	return &ProductFilter{expr: expr, program: program}, nil
}

// MustProductFilter compiles expr and panics on error. Use only for constants and tests.
func MustProductFilter(expr string) *ProductFilter {
	f, err := NewProductFilter(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// Expr returns the compiled expression.
func (f *ProductFilter) Expr() string {
	return f.expr
}

// Match evaluates the expression for p. Non-boolean results are an error.
func (f *ProductFilter) Match(p Product) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"product": map[string]any{
			"id":                p.ID,
			"name":              p.Name,
			"unit":              p.DisplayUnit,
			"category":          string(p.Category),
			"showInStock":       p.ShowInStock,
			"salesBasedRawCalc": p.SalesBasedRawCalc,
		},
	})
	if err != nil {
		return false, fmt.Errorf("evaluate product filter for %s: %w", p.ID, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("product filter %q returned %T, want bool", f.expr, out.Value())
	}
	return matched, nil
}
