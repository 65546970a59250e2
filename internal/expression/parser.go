package expression

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse compiles an expression. The grammar, loosest binding first:
//
//	ternary    = or [ "?" ternary ":" ternary ]
//	or         = and { ("||" | "or") and }
//	and        = equality { ("&&" | "and") equality }
//	equality   = relational { ("==" | "!=" | "===" | "!==" | "<>") relational }
//	relational = concat { ("<" | "<=" | ">" | ">=") concat }
//	concat     = additive { "." additive }
//	additive   = term { ("+" | "-") term }
//	term       = unary { ("*" | "/" | "%") unary }
//	unary      = ("!" | "not" | "-") unary | primary
//	primary    = number | string | true | false | null | ref
//	           | func "(" [ args ] ")" | "(" ternary ")" | "[" [ args ] "]"
func Parse(src string) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
	return n, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// match consumes the next token when it is one of the given operators or
// keywords.
func (p *parser) match(ops ...string) (string, bool) {
	t := p.peek()
	for _, op := range ops {
		if t.kind == tokOp && t.text == op {
			p.pos++
			return op, true
		}
		if t.kind == tokIdent && strings.EqualFold(t.text, op) {
			p.pos++
			return strings.ToLower(op), true
		}
	}
	return "", false
}

func (p *parser) expect(op string) error {
	if _, ok := p.match(op); !ok {
		t := p.peek()
		if t.kind == tokEOF {
			return fmt.Errorf("expected %q at end of expression", op)
		}
		return fmt.Errorf("expected %q at offset %d, got %q", op, t.pos, t.text)
	}
	return nil
}

func (p *parser) ternary() (Node, error) {
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if _, ok := p.match("?"); !ok {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return &ternaryNode{cond: cond, then: then, els: els}, nil
}

func (p *parser) or() (Node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match("||", "or"); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{left: left, right: right}
	}
}

func (p *parser) and() (Node, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match("&&", "and"); !ok {
			return left, nil
		}
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{and: true, left: left, right: right}
	}
}

func (p *parser) binary(next func() (Node, error), ops ...string) (Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.match(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) equality() (Node, error) {
	return p.binary(p.relational, "===", "!==", "==", "!=", "<>")
}

func (p *parser) relational() (Node, error) {
	return p.binary(p.concat, "<=", ">=", "<", ">")
}

func (p *parser) concat() (Node, error) {
	return p.binary(p.additive, ".")
}

func (p *parser) additive() (Node, error) {
	return p.binary(p.term, "+", "-")
}

func (p *parser) term() (Node, error) {
	return p.binary(p.unary, "*", "/", "%")
}

func (p *parser) unary() (Node, error) {
	if op, ok := p.match("!", "not", "-"); ok {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "not" {
			op = "!"
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	t := p.advance()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.text, err)
		}
		return &literalNode{value: f}, nil
	case tokString:
		return &literalNode{value: t.text}, nil
	case tokRef:
		return &refNode{ref: t.ref}, nil
	case tokIdent:
		return p.identifier(t)
	case tokOp:
		switch t.text {
		case "(":
			n, err := p.ternary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		case "[":
			items, err := p.list("]")
			if err != nil {
				return nil, err
			}
			return &arrayNode{items: items}, nil
		}
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
	return nil, fmt.Errorf("unexpected end of expression")
}

func (p *parser) identifier(t token) (Node, error) {
	switch strings.ToLower(t.text) {
	case "true":
		return &literalNode{value: true}, nil
	case "false":
		return &literalNode{value: false}, nil
	case "null":
		return &literalNode{value: nil}, nil
	}
	name := strings.ToLower(t.text)
	if _, ok := functions[name]; !ok {
		return nil, fmt.Errorf("unknown identifier %q at offset %d", t.text, t.pos)
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	args, err := p.list(")")
	if err != nil {
		return nil, err
	}
	return &callNode{name: name, args: args}, nil
}

// list parses comma separated expressions up to the closing operator.
func (p *parser) list(closing string) ([]Node, error) {
	var items []Node
	if _, ok := p.match(closing); ok {
		return items, nil
	}
	for {
		n, err := p.ternary()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if _, ok := p.match(","); ok {
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		return items, nil
	}
}
