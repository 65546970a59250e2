package conditional

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"go-skin-renderer/internal/model"
)

// mockChecker answers conditions from a map and records every evaluation.
type mockChecker struct {
	values  map[string]bool
	checked []string
}

func (m *mockChecker) Check(condition string) (bool, error) {
	m.checked = append(m.checked, condition)
	v, ok := m.values[condition]
	if !ok {
		return false, fmt.Errorf("unknown condition %q", condition)
	}
	return v, nil
}

func newChecker(values map[string]bool) *mockChecker {
	return &mockChecker{values: values}
}

func TestParse_Branches(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		values map[string]bool
		want   string
	}{
		{
			name:   "if true",
			input:  `<roundcube:if condition="config:enable_x"><p>A</p><roundcube:else><p>B</p><roundcube:endif>`,
			values: map[string]bool{"config:enable_x": true},
			want:   "<p>A</p>",
		},
		{
			name:   "if false",
			input:  `<roundcube:if condition="config:enable_x"><p>A</p><roundcube:else><p>B</p><roundcube:endif>`,
			values: map[string]bool{"config:enable_x": false},
			want:   "<p>B</p>",
		},
		{
			name:   "no else",
			input:  `a<roundcube:if condition="c1">b<roundcube:endif>c`,
			values: map[string]bool{"c1": false},
			want:   "ac",
		},
		{
			name:   "elseif chain",
			input:  `<roundcube:if condition="c1">1<roundcube:elseif condition="c2">2<roundcube:elseif condition="c3">3<roundcube:else>4<roundcube:endif>`,
			values: map[string]bool{"c1": false, "c2": false, "c3": true},
			want:   "3",
		},
		{
			name:   "elseif chain falls to else",
			input:  `<roundcube:if condition="c1">1<roundcube:elseif condition="c2">2<roundcube:else>4<roundcube:endif>`,
			values: map[string]bool{"c1": false, "c2": false},
			want:   "4",
		},
		{
			name:   "nested in taken branch",
			input:  `<roundcube:if condition="c1">[<roundcube:if condition="c2">x<roundcube:else>y<roundcube:endif>]<roundcube:else>z<roundcube:endif>`,
			values: map[string]bool{"c1": true, "c2": false},
			want:   "[y]",
		},
		{
			name:   "sequential blocks",
			input:  `<roundcube:if condition="c1">a<roundcube:endif>-<roundcube:if condition="c2">b<roundcube:endif>`,
			values: map[string]bool{"c1": true, "c2": true},
			want:   "a-b",
		},
		{
			name:   "self closing tags",
			input:  `<roundcube:if condition="c1" />a<roundcube:else />b<roundcube:endif />`,
			values: map[string]bool{"c1": false},
			want:   "b",
		},
		{
			name:   "tag lines leave no blank lines",
			input:  "a\n<roundcube:if condition=\"c1\" />\nb\n<roundcube:endif />\nc",
			values: map[string]bool{"c1": true},
			want:   "a\nb\nc",
		},
		{
			name:   "only one newline consumed",
			input:  "<roundcube:if condition=\"c1\">\n\nb<roundcube:else>\nz<roundcube:endif>\n\nc",
			values: map[string]bool{"c1": true},
			want:   "\nb\nc",
		},
		{
			name:   "newline after other tags kept",
			input:  "<roundcube:object name=\"logo\">\n<roundcube:if condition=\"c1\">x<roundcube:endif>",
			values: map[string]bool{"c1": false},
			want:   "<roundcube:object name=\"logo\">\n",
		},
		{
			name:   "other tags kept",
			input:  `<roundcube:if condition="c1"><roundcube:object name="logo"><roundcube:endif>`,
			values: map[string]bool{"c1": true},
			want:   `<roundcube:object name="logo">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(newChecker(tt.values), nil)
			got, err := p.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "roundcube:if") || strings.Contains(got, "roundcube:endif") {
				t.Errorf("Parse() left conditional tags in %q", got)
			}
		})
	}
}

func TestParse_LazyEvaluation(t *testing.T) {
	checker := newChecker(map[string]bool{"outer": false, "inner": true})
	p := NewParser(checker, nil)
	input := `<roundcube:if condition="outer"><roundcube:if condition="inner">x<roundcube:endif><roundcube:endif>`
	if _, err := p.Parse(input); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(checker.checked) != 1 || checker.checked[0] != "outer" {
		t.Errorf("checked = %v, want only [outer]", checker.checked)
	}
}

func TestParse_EscapedCondition(t *testing.T) {
	checker := newChecker(map[string]bool{"env:count > 1": true})
	p := NewParser(checker, nil)
	got, err := p.Parse(`<roundcube:if condition="env:count \> 1">many<roundcube:endif>`)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if got != "many" {
		t.Errorf("Parse() = %q, want %q", got, "many")
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "missing condition",
			input: `a<roundcube:if>b<roundcube:endif>c`,
			want:  "a<roundcube:if>bc",
		},
		{
			name:  "stray endif",
			input: `a<roundcube:endif>b`,
			want:  "ab",
		},
		{
			name:  "unterminated if",
			input: `a<roundcube:if condition="c1">b`,
			want:  "ab",
		},
		{
			name:  "duplicate else",
			input: `<roundcube:if condition="c0">a<roundcube:else>b<roundcube:else>c<roundcube:endif>`,
			want:  "bc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(newChecker(map[string]bool{"c1": true, "c0": false}), nil)
			got, err := p.Parse(tt.input)
			if err == nil {
				t.Fatal("Parse() should report a parse error")
			}
			if !errors.Is(err, model.ErrParse) {
				t.Errorf("error = %v, want ErrParse", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_ConditionError(t *testing.T) {
	p := NewParser(newChecker(nil), nil)
	got, err := p.Parse(`<roundcube:if condition="broken">a<roundcube:else>b<roundcube:endif>`)
	if !errors.Is(err, model.ErrParse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
	if got != "b" {
		t.Errorf("Parse() = %q, want the else branch", got)
	}
}
