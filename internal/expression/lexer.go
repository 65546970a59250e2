package expression

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokRef
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
	ref  Ref
}

// namespaces accepted in front of a colon. template only knows "name".
var namespaces = map[string]bool{
	NSSession:  true,
	NSConfig:   true,
	NSEnv:      true,
	NSRequest:  true,
	NSCookie:   true,
	NSBrowser:  true,
	NSTemplate: true,
}

// operators, longest first so that "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", "<>", "<=", ">=", "&&", "||",
	"<", ">", "!", "+", "-", "*", "/", "%", ".", "?", ":", "(", ")", "[", "]", ",",
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF, pos: l.pos})
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && strings.IndexByte(" \t\r\n", l.src[l.pos]) >= 0 {
		l.pos++
	}
}

func (l *lexer) next() error {
	c := l.src[l.pos]
	switch {
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) && l.numberAllowed()):
		l.number()
		return nil
	case c == '\'' || c == '"':
		return l.str(c)
	case isIdentStart(c):
		l.ident()
		return nil
	}
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.tokens = append(l.tokens, token{kind: tokOp, text: op, pos: l.pos})
			l.pos += len(op)
			return nil
		}
	}
	return fmt.Errorf("unexpected character %q at offset %d", c, l.pos)
}

// numberAllowed reports whether a leading "." starts a number rather than
// a concatenation, which is the case when no operand precedes it.
func (l *lexer) numberAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	last := l.tokens[len(l.tokens)-1]
	return last.kind == tokOp && last.text != ")" && last.text != "]"
}

func (l *lexer) number() {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isDigit(c) {
			l.pos++
			continue
		}
		if c == '.' && !seenDot && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	l.tokens = append(l.tokens, token{kind: tokNumber, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) str(quote byte) error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			next := l.src[l.pos+1]
			switch {
			case next == quote || next == '\\':
				sb.WriteByte(next)
			case quote == '"' && next == 'n':
				sb.WriteByte('\n')
			case quote == '"' && next == 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(c)
				sb.WriteByte(next)
			}
			l.pos += 2
		case c == quote:
			l.pos++
			l.tokens = append(l.tokens, token{kind: tokString, text: sb.String(), pos: start})
			return nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return fmt.Errorf("unterminated string starting at offset %d", start)
}

func (l *lexer) ident() {
	start := l.pos
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
	word := l.src[start:l.pos]
	ns := strings.ToLower(word)
	if namespaces[ns] && l.pos+1 < len(l.src) && l.src[l.pos] == ':' && isIdentChar(l.src[l.pos+1]) {
		l.ref(start, ns)
		return
	}
	l.tokens = append(l.tokens, token{kind: tokIdent, text: word, pos: start})
}

// ref reads NAME (and for config an optional :DEFAULT) after "ns:".
func (l *lexer) ref(start int, ns string) {
	l.pos++
	name := l.word()
	r := Ref{Namespace: ns, Name: name}
	if ns == NSConfig && l.pos+1 < len(l.src) && l.src[l.pos] == ':' && isIdentChar(l.src[l.pos+1]) {
		l.pos++
		r.Default = l.word()
		r.HasDefault = true
	}
	l.tokens = append(l.tokens, token{kind: tokRef, text: l.src[start:l.pos], pos: start, ref: r})
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
