// Package conditional resolves the if/elseif/else/endif tags of a skin
// template. The text is tokenized into literal runs and conditional tags,
// built into a tree of If nodes and then rendered by evaluating each
// condition once, only for the branches actually reached.
package conditional

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
)

// Checker evaluates a condition attribute.
type Checker interface {
	Check(condition string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(condition string) (bool, error)

func (f CheckerFunc) Check(condition string) (bool, error) { return f(condition) }

// Parser rewrites conditional blocks into the content of the taken branch.
type Parser struct {
	checker Checker
	logger  *slog.Logger
}

// NewParser creates a Parser using checker for conditions.
func NewParser(checker Checker, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{checker: checker, logger: logger}
}

// Parse returns text with every conditional block resolved. Malformed tags
// are logged and reported in the returned error (joined ParseErrors), but
// the returned text is always usable: the offending region stays literal.
func (p *Parser) Parse(text string) (string, error) {
	b := &builder{tokens: tokenize(text)}
	nodes := b.sequence(0)

	var sb strings.Builder
	sb.Grow(len(text))
	r := &renderer{checker: p.checker, out: &sb}
	r.render(nodes)

	errs := append(b.errs, r.errs...)
	for _, err := range errs {
		p.logger.Warn("Malformed conditional tag", "error", err)
	}
	return sb.String(), errors.Join(errs...)
}

type kind int

const (
	kindText kind = iota
	kindIf
	kindElseIf
	kindElse
	kindEndIf
)

var kinds = map[string]kind{
	"if":     kindIf,
	"elseif": kindElseIf,
	"else":   kindElse,
	"endif":  kindEndIf,
}

type token struct {
	kind      kind
	text      string // literal text, or the raw tag
	condition string
}

func tokenize(text string) []token {
	var tokens []token
	pos := 0
	for {
		tag, ok := markup.NextTag(text, pos)
		if !ok {
			break
		}
		k, isCond := kinds[tag.Name]
		if !isCond {
			if tag.End > pos {
				tokens = appendText(tokens, text[pos:tag.End])
			}
			pos = tag.End
			continue
		}
		tokens = appendText(tokens, text[pos:tag.Start])
		t := token{kind: k, text: text[tag.Start:tag.End]}
		if k == kindIf || k == kindElseIf {
			t.condition = markup.ParseAttributes(tag.Attrs).Get("condition")
		}
		tokens = append(tokens, t)
		pos = tag.End
		// a conditional tag on its own line leaves no blank line
		if pos < len(text) && text[pos] == '\n' {
			pos++
		}
	}
	return appendText(tokens, text[pos:])
}

func appendText(tokens []token, s string) []token {
	if s == "" {
		return tokens
	}
	if n := len(tokens); n > 0 && tokens[n-1].kind == kindText {
		tokens[n-1].text += s
		return tokens
	}
	return append(tokens, token{kind: kindText, text: s})
}

// node is either a text run or an if block.
type node struct {
	text string
	cond *ifNode
}

// ifNode holds one branch decision; elseif chains nest in Else.
type ifNode struct {
	tag       string
	condition string
	then      []node
	els       []node
}

type builder struct {
	tokens []token
	pos    int
	errs   []error
	end    *token
}

// sequence collects nodes until a branch boundary that belongs to an
// enclosing if (depth > 0) or the end of input. The boundary is left in
// b.end.
func (b *builder) sequence(depth int) []node {
	var nodes []node
	b.end = nil
	for b.pos < len(b.tokens) {
		t := b.tokens[b.pos]
		b.pos++
		switch t.kind {
		case kindText:
			nodes = append(nodes, node{text: t.text})
			continue
		case kindIf, kindElseIf:
			if t.condition == "" {
				b.errs = append(b.errs, model.ParseErr(t.text, fmt.Errorf("missing condition")))
				nodes = append(nodes, node{text: t.text})
				continue
			}
		}
		if depth > 0 && t.kind != kindIf {
			b.end = &t
			return nodes
		}
		switch t.kind {
		case kindIf, kindElseIf:
			if t.kind == kindElseIf {
				b.errs = append(b.errs, model.ParseErr(t.text, fmt.Errorf("elseif without if")))
			}
			nodes = append(nodes, node{cond: b.block(t, depth)})
		default:
			b.errs = append(b.errs, model.ParseErr(t.text, fmt.Errorf("%s without if", tagName(t.kind))))
		}
	}
	b.end = nil
	return nodes
}

// block parses the branches following an if or elseif tag.
func (b *builder) block(open token, depth int) *ifNode {
	n := &ifNode{tag: open.text, condition: open.condition}
	n.then = b.sequence(depth + 1)
	end := b.end
	for {
		if end == nil {
			b.errs = append(b.errs, model.ParseErr(open.text, fmt.Errorf("missing endif")))
			return n
		}
		switch end.kind {
		case kindEndIf:
			b.end = nil
			return n
		case kindElseIf:
			if n.els != nil {
				b.errs = append(b.errs, model.ParseErr(end.text, fmt.Errorf("elseif after else")))
				n.els = append(n.els, b.sequence(depth+1)...)
				end = b.end
				continue
			}
			n.els = []node{{cond: b.block(*end, depth)}}
			return n
		case kindElse:
			if n.els != nil {
				b.errs = append(b.errs, model.ParseErr(end.text, fmt.Errorf("duplicate else")))
			}
			n.els = append(n.els, b.sequence(depth+1)...)
			if n.els == nil {
				n.els = []node{}
			}
			end = b.end
		}
	}
}

func tagName(k kind) string {
	for name, v := range kinds {
		if v == k {
			return name
		}
	}
	return "tag"
}

type renderer struct {
	checker Checker
	out     *strings.Builder
	errs    []error
}

func (r *renderer) render(nodes []node) {
	for _, n := range nodes {
		if n.cond == nil {
			r.out.WriteString(n.text)
			continue
		}
		ok, err := r.checker.Check(n.cond.condition)
		if err != nil {
			r.errs = append(r.errs, model.ParseErr(n.cond.tag, err))
			ok = false
		}
		if ok {
			r.render(n.cond.then)
		} else {
			r.render(n.cond.els)
		}
	}
}
