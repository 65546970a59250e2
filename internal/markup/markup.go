// Package markup builds the small HTML fragments the renderer emits and
// parses the attribute strings of template tags.
package markup

import (
	"html/template"
	"strings"

	"go-skin-renderer/internal/model"

	"golang.org/x/net/html"
)

// Attributes that are written as key="key" when set, or dropped.
var boolAttrs = map[string]bool{
	"checked": true, "multiple": true, "disabled": true, "selected": true,
	"autofocus": true, "readonly": true, "required": true,
}

// Elements that always get a closing tag.
var containers = map[string]bool{
	"iframe": true, "div": true, "span": true, "p": true, "h1": true, "h2": true, "h3": true,
	"ul": true, "form": true, "textarea": true, "table": true, "thead": true, "tbody": true,
	"tr": true, "th": true, "td": true, "style": true, "script": true, "a": true, "button": true,
	"select": true, "option": true, "label": true, "li": true,
}

var inlineTags = map[string]bool{"a": true, "span": true, "img": true}

// CommonAttrs may be passed to any element.
var CommonAttrs = []string{"id", "class", "style", "title", "align", "unselectable", "tabindex", "role"}

var doctypes = map[string]string{
	"html5":        `<!DOCTYPE html>`,
	"xhtml":        `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`,
	"xhtml-trans":  `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">`,
	"xhtml-strict": `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`,
}

// ParseAttributes parses the attribute part of a template tag, e.g.
// `name="productname" condition="env:task"`. Keys are lowercased and
// entities in values are decoded. A backslash-escaped '>' is kept
// as a literal '>'.
func ParseAttributes(s string) *model.Attributes {
	attrs := model.NewAttributes()
	s = strings.ReplaceAll(s, `\>`, "&gt;")

	z := html.NewTokenizer(strings.NewReader("<x " + s + ">"))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return attrs
	}
	_, more := z.TagName()
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if len(key) == 0 || string(key) == "/" {
			continue
		}
		attrs.Set(string(key), string(val))
	}
	return attrs
}

// Quote escapes text for HTML content and attribute values.
func Quote(s string) string {
	return template.HTMLEscapeString(s)
}

// JSQuote escapes text for use inside a quoted JavaScript string.
func JSQuote(s string) string {
	return template.JSEscapeString(s)
}

// AttribString renders attributes as ` key="value"` pairs. When allowed is
// non-empty only those keys plus data-* and aria-* are written.
func AttribString(attrs *model.Attributes, allowed []string) string {
	var allow map[string]bool
	if len(allowed) > 0 {
		allow = make(map[string]bool, len(allowed))
		for _, k := range allowed {
			allow[k] = true
		}
	}

	var sb strings.Builder
	for _, key := range attrs.Keys() {
		if key == "nl" || key == "noclose" {
			continue
		}
		value := attrs.Get(key)
		if strings.HasPrefix(key, "on") && value == "" {
			continue
		}
		if boolAttrs[key] {
			if value == "" || value == "false" {
				continue
			}
			value = key
		}
		if allow != nil && !allow[key] && !strings.HasPrefix(key, "data-") && !strings.HasPrefix(key, "aria-") {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(key)
		sb.WriteString(`="`)
		sb.WriteString(Quote(value))
		sb.WriteString(`"`)
	}
	return sb.String()
}

// Tag renders an element without content. Container elements are closed
// right away unless the "noclose" attribute is set.
func Tag(name string, attrs *model.Attributes, allowed ...string) string {
	if containers[name] {
		return element(name, attrs, "", false, allowed)
	}
	suffix := ""
	if attrs.Bool("nl") {
		suffix = "\n"
	}
	return "<" + name + AttribString(attrs, allowed) + ">" + suffix
}

// Container renders an element wrapping content.
func Container(name string, attrs *model.Attributes, content string, allowed ...string) string {
	return element(name, attrs, content, true, allowed)
}

func element(name string, attrs *model.Attributes, content string, hasContent bool, allowed []string) string {
	if attrs == nil {
		attrs = model.NewAttributes()
	}
	suffix := ""
	if attrs.Bool("nl") || (hasContent && content != "" && !inlineTags[name] && attrs.Get("nl") != "false") {
		suffix = "\n"
	}
	if !attrs.Bool("noclose") {
		suffix = "</" + name + ">" + suffix
	}
	return "<" + name + AttribString(attrs, allowed) + ">" + content + suffix
}

// Doctype returns the declaration for a doctype name; unknown names yield "".
func Doctype(kind string) string {
	return doctypes[strings.ToLower(kind)]
}

// ScriptFile renders a <script src> tag.
func ScriptFile(src string) string {
	return Container("script", model.NewAttributes("src", src, "type", "text/javascript"), "") + "\n"
}

// InlineScript renders an inline <script> block.
func InlineScript(code string) string {
	return "<script type=\"text/javascript\">\n" + strings.TrimSpace(code) + "\n</script>\n"
}

// HiddenField renders an <input type="hidden">.
func HiddenField(name, value string) string {
	return Tag("input", model.NewAttributes("type", "hidden", "name", name, "value", value)) + "\n"
}

// Iframe renders an iframe element.
func Iframe(attrs *model.Attributes) string {
	return Container("iframe", attrs, "", append([]string{"name", "src", "width", "height", "border", "frameborder", "onload", "allowfullscreen", "sandbox"}, CommonAttrs...)...)
}
