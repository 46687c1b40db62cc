package query

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dsnet/bufr/tree"
)

// FilterExpr is a compiled boolean predicate over a node's values,
// evaluated against the environment built by nodeEnv, in the same
// compile-once/run-many shape used for rule evaluation across the
// pack (component K).
type FilterExpr struct {
	src     string
	program *vm.Program
}

// CompileFilter compiles src as a boolean expr-lang expression. The
// environment exposed to it is described by nodeEnv: "value" (the
// first-subset scalar), "values" (all per-subset scalars), "missing"
// (whether the first subset's value is the BUFR missing marker), and
// "meaning" (the 031021 text, if any).
func CompileFilter(src string) (*FilterExpr, error) {
	prog, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, Error("compiling filter expression: " + err.Error())
	}
	return &FilterExpr{src: src, program: prog}, nil
}

// Match reports whether n satisfies the compiled expression.
func (f *FilterExpr) Match(n *tree.Node) (bool, error) {
	out, err := expr.Run(f.program, nodeEnv(n))
	if err != nil {
		return false, Error("running filter expression " + f.src + ": " + err.Error())
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Filter returns the subset of nodes matching f.
func (f *FilterExpr) Filter(nodes []*tree.Node) ([]*tree.Node, error) {
	var out []*tree.Node
	for _, n := range nodes {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func nodeEnv(n *tree.Node) map[string]any {
	env := map[string]any{
		"value":   nil,
		"values":  []any{},
		"missing": true,
		"meaning": "",
	}
	if n == nil {
		return env
	}
	env["meaning"] = n.Meaning
	values := make([]any, len(n.Values))
	for i, v := range n.Values {
		values[i] = scalarOf(v)
	}
	env["values"] = values
	if len(n.Values) > 0 {
		env["value"] = scalarOf(n.Values[0])
		env["missing"] = n.Values[0].IsMissing()
	}
	return env
}

func scalarOf(v tree.Value) any {
	switch v.Kind {
	case tree.KindInt:
		return v.Int
	case tree.KindFloat:
		return v.Float
	case tree.KindString:
		return v.Str
	case tree.KindBytes:
		return v.Bytes
	default:
		return nil
	}
}
