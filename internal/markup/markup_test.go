package markup

import (
	"strings"
	"testing"

	"go-skin-renderer/internal/model"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"Double quotes", `name="productname" condition="env:task"`, map[string]string{"name": "productname", "condition": "env:task"}},
		{"Single quotes", `name='logo' type='link'`, map[string]string{"name": "logo", "type": "link"}},
		{"Uppercase keys", `NAME="x"`, map[string]string{"name": "x"}},
		{"Self closing", `name="message" /`, map[string]string{"name": "message"}},
		{"Entities", `title="a &amp; b"`, map[string]string{"title": "a & b"}},
		{"Escaped gt", `condition="env:count \> 1"`, map[string]string{"condition": "env:count > 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAttributes(tt.input)
			if got.Len() != len(tt.want) {
				t.Fatalf("ParseAttributes(%q) returned %d attributes (%v), want %d", tt.input, got.Len(), got.Keys(), len(tt.want))
			}
			for k, v := range tt.want {
				if got.Get(k) != v {
					t.Errorf("attribute %q = %q, want %q", k, got.Get(k), v)
				}
			}
		})
	}
}

func TestParseAttributes_KeepsOrder(t *testing.T) {
	attrs := ParseAttributes(`rel="stylesheet" href="/styles.css" type="text/css"`)
	got := strings.Join(attrs.Keys(), ",")
	if got != "rel,href,type" {
		t.Errorf("Keys() = %q, want %q", got, "rel,href,type")
	}
}

func TestTag(t *testing.T) {
	attrs := model.NewAttributes("rel", "icon", "href", "/favicon.ico", "disabled", "1", "onclick", "")
	got := Tag("link", attrs)
	want := `<link rel="icon" href="/favicon.ico" disabled="disabled">`
	if got != want {
		t.Errorf("Tag() = %q, want %q", got, want)
	}
}

func TestTag_Allowed(t *testing.T) {
	attrs := model.NewAttributes("id", "x", "bogus", "y", "data-foo", "z")
	got := Tag("input", attrs, "id")
	want := `<input id="x" data-foo="z">`
	if got != want {
		t.Errorf("Tag() = %q, want %q", got, want)
	}
}

func TestContainer(t *testing.T) {
	got := Container("div", model.NewAttributes("id", "msg"), "")
	if got != `<div id="msg"></div>` {
		t.Errorf("Container() = %q", got)
	}

	got = Container("form", model.NewAttributes("action", "./", "noclose", "1"), "")
	if got != `<form action="./">` {
		t.Errorf("Container() with noclose = %q", got)
	}

	got = Container("p", nil, "text")
	if got != "<p>text</p>\n" {
		t.Errorf("Container() block element = %q", got)
	}
}

func TestQuote(t *testing.T) {
	if got := Quote(`<b>"x" & y</b>`); strings.ContainsAny(got, `<>"`) {
		t.Errorf("Quote() left markup characters: %q", got)
	}
}

func TestDoctype(t *testing.T) {
	if Doctype("html5") != "<!DOCTYPE html>" {
		t.Errorf("Doctype(html5) = %q", Doctype("html5"))
	}
	if Doctype("unknown") != "" {
		t.Errorf("Doctype(unknown) = %q, want empty", Doctype("unknown"))
	}
}
