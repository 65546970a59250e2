package templating

import (
	"strings"

	"go-skin-renderer/internal/expression"
	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
)

// Lookup resolves a namespaced reference against the request state, so
// an Output can serve as expression scope.
func (o *Output) Lookup(ref expression.Ref) any {
	switch ref.Namespace {
	case expression.NSSession:
		if o.req.Session == nil {
			return nil
		}
		v, _ := o.req.Session.Get(ref.Name)
		return v
	case expression.NSConfig:
		if v := o.cfg.Get(ref.Name); v != nil {
			return v
		}
		// unset options read as their default, or false
		if ref.HasDefault {
			return model.ParseBool(ref.Default)
		}
		return false
	case expression.NSEnv:
		return o.env[ref.Name]
	case expression.NSRequest:
		if v, ok := o.req.Params[ref.Name]; ok {
			return v
		}
		return nil
	case expression.NSCookie:
		if v, ok := o.req.Cookies[ref.Name]; ok {
			return v
		}
		return nil
	case expression.NSBrowser:
		return o.req.Browser[ref.Name]
	case expression.NSTemplate:
		return o.ctx.TemplateName
	}
	return nil
}

// Check evaluates a condition attribute.
func (o *Output) Check(condition string) (bool, error) {
	return expression.Check(condition, o)
}

// eval evaluates an expression attribute. Errors are logged and yield nil.
func (o *Output) eval(src string) any {
	v, err := expression.Evaluate(src, o)
	if err != nil {
		o.logger.Warn("Failed to evaluate expression", "expression", src, "template", o.ctx.TemplateName, "error", err)
		return nil
	}
	return v
}

// conditionMet reports whether a tag's condition attribute holds.
// Evaluation errors count as false.
func (o *Output) conditionMet(condition string) bool {
	ok, err := o.Check(condition)
	if err != nil {
		o.logger.Warn("Failed to evaluate condition", "condition", condition, "template", o.ctx.TemplateName, "error", err)
		return false
	}
	return ok
}

// variable returns a value for display by namespace and name, as used by
// the var tag. Cookie values come back HTML-escaped.
func (o *Output) variable(namespace, name string) any {
	namespace = strings.ToLower(namespace)
	switch namespace {
	case expression.NSCookie:
		return markup.Quote(o.req.Cookies[name])
	case expression.NSTemplate:
		return o.ctx.TemplateName
	case expression.NSSession, expression.NSConfig, expression.NSEnv, expression.NSRequest, expression.NSBrowser:
		return o.Lookup(expression.Ref{Namespace: namespace, Name: name})
	}
	return ""
}

// displayValue renders a variable for output, joining lists with ", ".
func displayValue(v any) string {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, ", ")
	case []any:
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, expression.ToString(item))
		}
		return strings.Join(parts, ", ")
	}
	return expression.ToString(v)
}
