package markup

import "strings"

// Namespace is the reserved prefix of template tags.
const Namespace = "roundcube"

const tagOpen = "<" + Namespace + ":"

// RawTag is one template tag found in a document.
type RawTag struct {
	Start, End int // byte offsets; End is just past the closing '>'
	Name       string
	Attrs      string // raw attribute text, still escaped
}

// NextTag finds the first template tag at or after from. Tag names consist
// of letters, digits, '-', '_' and '.'. The closing '>' is the first one
// that is neither backslash-escaped nor inside a quoted attribute value.
// ok is false when no complete tag remains.
func NextTag(s string, from int) (tag RawTag, ok bool) {
	for from < len(s) {
		i := indexFold(s, tagOpen, from)
		if i < 0 {
			return RawTag{}, false
		}
		nameStart := i + len(tagOpen)
		nameEnd := nameStart
		for nameEnd < len(s) && isNameChar(s[nameEnd]) {
			nameEnd++
		}
		if nameEnd == nameStart || nameEnd >= len(s) || !isTagBoundary(s[nameEnd]) {
			from = nameStart
			continue
		}
		end := tagEnd(s, nameEnd)
		if end < 0 {
			return RawTag{}, false
		}
		attrs := strings.TrimSpace(s[nameEnd:end])
		attrs = strings.TrimSpace(strings.TrimSuffix(attrs, "/"))
		return RawTag{
			Start: i,
			End:   end + 1,
			Name:  strings.ToLower(s[nameStart:nameEnd]),
			Attrs: attrs,
		}, true
	}
	return RawTag{}, false
}

// tagEnd returns the offset of the closing '>' scanning from i.
func tagEnd(s string, i int) int {
	var quote byte
	afterEq := false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\\' && i+1 < len(s) && s[i+1] == '>':
			i++
		case c == '>':
			return i
		case (c == '"' || c == '\'') && afterEq:
			quote = c
		}
		if c == '=' {
			afterEq = true
		} else if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			afterEq = false
		}
	}
	return -1
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isTagBoundary(c byte) bool {
	return c == '>' || c == '/' || c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// indexFold is an ASCII case-insensitive strings.Index starting at from.
func indexFold(s, sub string, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		j := strings.IndexByte(s[i:], '<')
		if j < 0 {
			return -1
		}
		i += j
		if i+len(sub) > len(s) {
			return -1
		}
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
