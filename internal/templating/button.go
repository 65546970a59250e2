package templating

import (
	"fmt"
	"strconv"
	"strings"

	"go-skin-renderer/internal/commands"
	"go-skin-renderer/internal/expression"
	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
)

var (
	buttonAttrs = []string{"type", "value", "onclick", "id", "class", "style", "tabindex", "disabled"}
	imageAttrs  = []string{"style", "class", "id", "width", "height", "border", "hspace", "vspace", "align", "alt", "tabindex", "title"}
	imageLink   = []string{"href", "onclick", "onmouseover", "onmouseout", "onmousedown", "onmouseup", "target"}
	textLink    = append([]string{"href", "onclick", "tabindex", "target", "rel"}, markup.CommonAttrs...)
	formAttrs   = []string{"id", "class", "style", "name", "method", "action", "enctype", "onsubmit"}
)

// Button renders a button bound to a client command and registers it with
// the client. Buttons of disabled actions render as "".
func (o *Output) Button(in *model.Attributes) string {
	attrs := in.Clone()
	if attrs.Get("command") == "" && attrs.Get("name") == "" && attrs.Get("href") == "" {
		return ""
	}

	menuitem := false
	typ := strings.ToLower(attrs.Get("type"))
	switch {
	case strings.HasSuffix(typ, "-menuitem") && len(typ) > len("-menuitem"):
		typ = strings.TrimSuffix(typ, "-menuitem")
		menuitem = true
	case typ == "":
		typ = "button"
		if attrs.Get("image") != "" || attrs.Get("imagepas") != "" || attrs.Get("imageact") != "" {
			typ = "image"
		}
	}
	attrs.Set("type", typ)

	command := attrs.Get("command")
	action := command
	if action == "" {
		action = attrs.Get("name")
	}
	element := action
	if task := attrs.Get("task"); task != "" {
		command = task + "." + command
		element = task + "." + action
	} else if task := o.envString("task"); task != "" {
		element = task + "." + action
	}

	disabled := o.cfg.GetStringSlice("disabled_actions")
	if contains(disabled, element) || contains(disabled, action) {
		return ""
	}

	if attrs.Get("image") == "" {
		img := attrs.Get("imagepas")
		if img == "" {
			img = attrs.Get("imageact")
		}
		attrs.Set("image", img)
	}

	if attrs.Get("id") == "" {
		attrs.Set("id", "rcmbtn"+strconv.Itoa(o.buttonCount))
		o.buttonCount++
	}

	domain := attrs.Get("domain")
	if v := attrs.Get("title"); v != "" {
		attrs.Set("title", o.domainText(v, domain))
	}
	label := ""
	if v := attrs.Get("label"); v != "" {
		label = markup.Quote(o.domainText(v, domain))
	}
	if v := attrs.Get("alt"); v != "" {
		attrs.Set("alt", o.domainText(v, domain))
	}

	if attrs.Get("role") == "" {
		attrs.Set("role", "button")
	}
	if (attrs.Get("class") != "" && attrs.Get("classact") != "") || (attrs.Get("imagepas") != "" && attrs.Get("imageact") != "") {
		if v, ok := attrs.Lookup("tabindex"); ok {
			attrs.Set("data-tabindex", v)
		}
		attrs.Set("tabindex", "-1")
		attrs.Set("aria-disabled", "true")
	}

	if o.req.Browser["ie"] && attrs.Get("title") == "" && attrs.Get("alt") != "" {
		attrs.Set("title", attrs.Get("alt"))
	}
	attrs.SetDefault("alt", "")

	if cmd := attrs.Get("command"); cmd != "" {
		o.AddScript(fmt.Sprintf("%s.register_button('%s', '%s', '%s', '%s', '%s', '%s');",
			commands.JSObject,
			markup.JSQuote(command),
			markup.JSQuote(attrs.Get("id")),
			markup.JSQuote(typ),
			markup.JSQuote(o.stateValue(attrs, "imageact", "classact")),
			markup.JSQuote(o.stateValue(attrs, "imagesel", "classsel")),
			markup.JSQuote(o.stateValue(attrs, "imageover", "")),
		), "head")

		task := attrs.Get("task")
		switch {
		case contains(MainTasks, cmd):
			attrs.Set("href", o.URL(map[string]string{"_task": cmd}))
			attrs.Set("onclick", fmt.Sprintf("return %s.command('switch-task','%s',this,event)", commands.JSObject, markup.JSQuote(cmd)))
		case task != "" && contains(MainTasks, task):
			attrs.Set("href", o.URL(map[string]string{"_action": cmd, "_task": task}))
		case contains(staticCommands, cmd):
			attrs.Set("href", o.URL(map[string]string{"_action": cmd}))
		case (cmd == "permaurl" || cmd == "extwin") && o.envString("permaurl") != "":
			attrs.Set("href", o.envString("permaurl"))
		}
	}

	if attrs.Get("href") == "" {
		attrs.Set("href", "#")
	}

	if attrs.Get("task") != "" {
		if v := attrs.Get("classact"); v != "" {
			attrs.Set("class", v)
		}
	} else if command != "" && attrs.Get("onclick") == "" {
		attrs.Set("onclick", fmt.Sprintf("return %s.command('%s','%s',this,event)",
			commands.JSObject, markup.JSQuote(command), markup.JSQuote(attrs.Get("prop"))))
	}

	var out, content string
	var linkAttrs []string
	switch typ {
	case "image":
		content = fmt.Sprintf(`<img src="%s"%s />`, markup.Quote(o.AbsURL(attrs.Get("image"), false)), markup.AttribString(attrs, imageAttrs))
		if label != "" {
			content += " " + label
		}
		linkAttrs = imageLink
	case "link":
		content = label
		if v, ok := attrs.Lookup("content"); ok {
			content = v
		} else if content == "" {
			content = attrs.Get("command")
		}
		if inner := attrs.Get("innerclass"); inner != "" {
			content = markup.Container("span", model.NewAttributes("class", inner), content)
		}
		linkAttrs = textLink
	case "input":
		attrs.Set("type", "button")
		if label != "" {
			attrs.Set("value", o.domainText(attrs.Get("label"), domain))
		}
		if attrs.Get("command") != "" {
			attrs.Set("disabled", "disabled")
		}
		out = markup.Tag("input", attrs, buttonAttrs...)
	default:
		if label != "" {
			attrs.Set("value", o.domainText(attrs.Get("label"), domain))
		}
		if attrs.Get("command") != "" {
			attrs.Set("disabled", "disabled")
		}
		inner := label
		if v, ok := attrs.Lookup("content"); ok {
			inner = v
		}
		out = markup.Container("button", attrs, inner, buttonAttrs...)
	}

	if content != "" {
		out = "<a" + markup.AttribString(attrs, linkAttrs) + ">" + content + "</a>"
	}
	if wrapper := attrs.Get("wrapper"); wrapper != "" {
		out = markup.Container(wrapper, nil, out)
	}
	if menuitem {
		class := ""
		if c := attrs.Get("menuitem-class"); c != "" {
			class = ` class="` + markup.Quote(c) + `"`
		}
		out = `<li role="menuitem"` + class + ">" + out + "</li>"
	}
	return out
}

// stateValue returns the image (made absolute) or class of a button state.
func (o *Output) stateValue(attrs *model.Attributes, imageKey, classKey string) string {
	if img := attrs.Get(imageKey); img != "" {
		return o.AbsURL(img, false)
	}
	if classKey == "" {
		return ""
	}
	return attrs.Get(classKey)
}

// Frame renders an iframe. A frame without src loads about:blank. When
// isContentFrame or the contentframe attribute is set, the frame is
// registered as the page's content frame.
func (o *Output) Frame(attrs *model.Attributes, isContentFrame bool) string {
	if attrs.Get("id") == "" {
		o.frameCount++
		attrs.Set("id", "rcmframe"+strconv.Itoa(o.frameCount))
	}
	attrs.Set("name", attrs.Get("id"))
	if src := attrs.Get("src"); src != "" {
		attrs.Set("src", o.AbsURL(src, true))
	} else {
		attrs.Set("src", "about:blank")
	}

	if isContentFrame || attrs.Get("contentframe") != "" {
		name := attrs.Get("contentframe")
		if name == "" {
			name = attrs.Get("name")
		}
		o.SetEnv("contentframe", name, true)
	}
	return markup.Iframe(attrs)
}

// FormTag renders a <form> with the hidden fields of the window context.
// Without content the form is left open.
func (o *Output) FormTag(attrs *model.Attributes, content string) string {
	attrs = attrs.Clone()
	hidden := ""
	if expression.Truthy(o.env["extwin"]) {
		hidden = markup.HiddenField("_extwin", "1")
	} else if o.framed || expression.Truthy(o.env["framed"]) {
		hidden = markup.HiddenField("_framed", "1")
	}
	if content == "" {
		attrs.Set("noclose", "true")
	}
	attrs.SetDefault("action", o.CommPath())
	attrs.SetDefault("method", "get")
	return markup.Container("form", attrs, hidden+content, formAttrs...)
}

// RequestForm renders a form posting task and action as hidden fields.
// With the form attribute set only the hidden fields are returned, for
// use inside an existing form.
func (o *Output) RequestForm(attrs *model.Attributes, content string) string {
	attrs = attrs.Clone()
	hidden := ""
	if task := attrs.Get("task"); task != "" {
		hidden += markup.HiddenField("_task", task)
	}
	if action := attrs.Get("action"); action != "" {
		hidden += markup.HiddenField("_action", action)
	}

	if attrs.Get("form") != "" {
		if o.framed || expression.Truthy(o.env["framed"]) {
			hidden += markup.HiddenField("_framed", "1")
		}
		return hidden + content
	}

	attrs.Delete("task", "request")
	attrs.Set("action", "./")
	return o.FormTag(attrs, hidden+content)
}
