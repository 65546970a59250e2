// Package commands collects the client calls of a render and serializes
// them into the script block of the page.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go-skin-renderer/internal/model"
)

// JSObject is the name of the client application object.
const JSObject = "rcmail"

const parentMarker = "parent."

// ParentPrefix guards calls routed to the parent window.
const ParentPrefix = "if (window.parent && parent." + JSObject + ") parent."

// Queue holds client commands in issue order.
type Queue struct {
	commands []model.Command
}

// Enqueue adds a call. Methods containing "plugin." become a triggerEvent
// call carrying the method name and its first argument, so the client
// dispatches all plugin commands the same way.
func (q *Queue) Enqueue(method string, args ...any) {
	if strings.Contains(method, "plugin.") {
		var arg any
		if len(args) > 0 {
			arg = args[0]
		}
		q.commands = append(q.commands, model.Command{Method: "triggerEvent", Args: []any{method, arg}})
		return
	}
	q.commands = append(q.commands, model.Command{Method: method, Args: args})
}

// Commands returns the queued calls.
func (q *Queue) Commands() []model.Command {
	return append([]model.Command(nil), q.commands...)
}

// Len returns the number of queued calls.
func (q *Queue) Len() int { return len(q.commands) }

// Reset drops all queued calls.
func (q *Queue) Reset() { q.commands = nil }

// Options describe the render state the serialized calls depend on.
type Options struct {
	Framed bool              // the page is embedded in a parent frame
	Unlock string            // one-time UI unlock token from the request
	Env    map[string]any    // client environment, sent with set_env
	Labels map[string]string // localized labels, sent with add_label
	Pretty bool              // indent JSON arguments
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Serialize renders the queue as script code. set_env (unless framed) and
// add_label come first, then iframe_loaded when framed or hide_message when
// an unlock token is set, then the queued calls. Calls of a framed page and
// calls prefixed "parent." go to the parent window. When every call does,
// the block is wrapped in a single parent check and framed is true.
func (q *Queue) Serialize(opts Options) (code string, framed bool, err error) {
	var top []model.Command
	if !opts.Framed && len(opts.Env) > 0 {
		top = append(top, model.Command{Method: "set_env", Args: []any{opts.Env}})
	}
	if len(opts.Labels) > 0 {
		top = append(top, model.Command{Method: "add_label", Args: []any{opts.Labels}})
	}
	unlock := nonAlnum.ReplaceAllString(opts.Unlock, "")
	if opts.Framed {
		top = append(top, model.Command{Method: "iframe_loaded", Args: []any{unlock}})
	} else if unlock != "" {
		top = append(top, model.Command{Method: "hide_message", Args: []any{unlock}})
	}

	all := append(top, q.commands...)
	var sb strings.Builder
	parentCalls := 0
	for _, cmd := range all {
		args := make([]string, 0, len(cmd.Args))
		for _, a := range cmd.Args {
			s, err := JSON(a, opts.Pretty)
			if err != nil {
				return "", false, fmt.Errorf("failed to serialize arguments of %s: %w", cmd.Method, err)
			}
			args = append(args, s)
		}

		method := cmd.Method
		if opts.Framed || strings.HasPrefix(method, parentMarker) {
			parentCalls++
			method = ParentPrefix + JSObject + "." + strings.TrimPrefix(method, parentMarker)
		} else {
			method = JSObject + "." + method
		}
		fmt.Fprintf(&sb, "%s(%s);\n", method, strings.Join(args, ","))
	}

	code = sb.String()
	framed = parentCalls > 0 && parentCalls == len(all)
	if framed {
		code = "if (window.parent && parent." + JSObject + ") {\n" +
			strings.ReplaceAll(code, ParentPrefix, "\tparent.") +
			"}\n"
	}
	return code, framed, nil
}

// JSON encodes v as a script literal safe for inline <script> blocks.
func JSON(v any, pretty bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	s := strings.TrimSuffix(buf.String(), "\n")
	return strings.ReplaceAll(s, "'", `\u0027`), nil
}
