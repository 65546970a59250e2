package expression

import (
	"fmt"
	"math"
	"strings"
)

// Evaluate parses and evaluates src against scope.
func Evaluate(src string, scope Scope) (any, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Eval(n, scope)
}

// Eval evaluates a parsed expression. Numbers come back as float64.
func Eval(n Node, scope Scope) (any, error) {
	if scope == nil {
		scope = ScopeFunc(func(Ref) any { return nil })
	}
	return n.eval(scope)
}

// Check evaluates src as a condition.
func Check(src string, scope Scope) (bool, error) {
	v, err := Evaluate(src, scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

func (n *literalNode) eval(Scope) (any, error) { return n.value, nil }

func (n *refNode) eval(s Scope) (any, error) {
	return Normalize(s.Lookup(n.ref)), nil
}

func (n *arrayNode) eval(s Scope) (any, error) {
	out := make([]any, 0, len(n.items))
	for _, item := range n.items {
		v, err := item.eval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (n *unaryNode) eval(s Scope) (any, error) {
	v, err := n.operand.eval(s)
	if err != nil {
		return nil, err
	}
	if n.op == "!" {
		return !Truthy(v), nil
	}
	return -ToNumber(v), nil
}

func (n *logicalNode) eval(s Scope) (any, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	lt := Truthy(l)
	if n.and && !lt {
		return false, nil
	}
	if !n.and && lt {
		return true, nil
	}
	r, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	return Truthy(r), nil
}

func (n *ternaryNode) eval(s Scope) (any, error) {
	c, err := n.cond.eval(s)
	if err != nil {
		return nil, err
	}
	if Truthy(c) {
		return n.then.eval(s)
	}
	return n.els.eval(s)
}

func (n *binaryNode) eval(s Scope) (any, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "==":
		return LooseEqual(l, r), nil
	case "!=", "<>":
		return !LooseEqual(l, r), nil
	case "===":
		return StrictEqual(l, r), nil
	case "!==":
		return !StrictEqual(l, r), nil
	case "<":
		return compare(l, r) < 0, nil
	case "<=":
		return compare(l, r) <= 0, nil
	case ">":
		return compare(l, r) > 0, nil
	case ">=":
		return compare(l, r) >= 0, nil
	case ".":
		return ToString(l) + ToString(r), nil
	case "+":
		return ToNumber(l) + ToNumber(r), nil
	case "-":
		return ToNumber(l) - ToNumber(r), nil
	case "*":
		return ToNumber(l) * ToNumber(r), nil
	case "/", "%":
		d := ToNumber(r)
		if d == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if n.op == "/" {
			return ToNumber(l) / d, nil
		}
		return math.Mod(math.Trunc(ToNumber(l)), math.Trunc(d)), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", n.op)
}

func (n *callNode) eval(s Scope) (any, error) {
	fn := functions[n.name]
	if len(n.args) < fn.min || (fn.max >= 0 && len(n.args) > fn.max) {
		return nil, fmt.Errorf("%s() called with %d arguments", n.name, len(n.args))
	}
	args := make([]any, 0, len(n.args))
	for _, a := range n.args {
		v, err := a.eval(s)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn.call(args), nil
}

type function struct {
	min, max int
	call     func(args []any) any
}

var functions = map[string]function{
	"empty": {1, 1, func(a []any) any { return !Truthy(a[0]) }},
	"isset": {1, 1, func(a []any) any { return a[0] != nil }},
	"count": {1, 1, func(a []any) any { return float64(length(a[0])) }},
	"strlen": {1, 1, func(a []any) any {
		return float64(len(ToString(a[0])))
	}},
	"strtolower": {1, 1, func(a []any) any { return strings.ToLower(ToString(a[0])) }},
	"strtoupper": {1, 1, func(a []any) any { return strings.ToUpper(ToString(a[0])) }},
	"intval":     {1, 1, func(a []any) any { return math.Trunc(ToNumber(a[0])) }},
	"in_array": {2, 3, func(a []any) any {
		strict := len(a) == 3 && Truthy(a[2])
		list, _ := a[1].([]any)
		for _, item := range list {
			if (strict && StrictEqual(a[0], item)) || (!strict && LooseEqual(a[0], item)) {
				return true
			}
		}
		return false
	}},
}

func length(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case []any:
		return len(x)
	case map[string]any:
		return len(x)
	}
	return 1
}
