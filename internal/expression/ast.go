package expression

// Namespaces of variable references.
const (
	NSSession  = "session"
	NSConfig   = "config"
	NSEnv      = "env"
	NSRequest  = "request"
	NSCookie   = "cookie"
	NSBrowser  = "browser"
	NSTemplate = "template"
)

// Ref is a namespaced variable reference such as env:action or
// config:enable_spellcheck:true.
type Ref struct {
	Namespace  string
	Name       string
	Default    string
	HasDefault bool
}

func (r Ref) String() string {
	s := r.Namespace + ":" + r.Name
	if r.HasDefault {
		s += ":" + r.Default
	}
	return s
}

// Scope resolves references against the bound request state. A missing
// value is reported as nil.
type Scope interface {
	Lookup(ref Ref) any
}

// ScopeFunc adapts a function to Scope.
type ScopeFunc func(ref Ref) any

func (f ScopeFunc) Lookup(ref Ref) any { return f(ref) }

// Node is a parsed expression.
type Node interface {
	eval(s Scope) (any, error)
}

type literalNode struct{ value any }

type refNode struct{ ref Ref }

type arrayNode struct{ items []Node }

type unaryNode struct {
	op      string
	operand Node
}

type binaryNode struct {
	op          string
	left, right Node
}

type logicalNode struct {
	and         bool
	left, right Node
}

type ternaryNode struct {
	cond, then, els Node
}

type callNode struct {
	name string
	args []Node
}
