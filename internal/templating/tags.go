package templating

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go-skin-renderer/internal/conditional"
	"go-skin-renderer/internal/expression"
	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/plugin"
)

var (
	pluginSkinDir = regexp.MustCompile(`plugins/\w+/`)
	frameSource   = regexp.MustCompile(`(?i)^(config|env):([a-z0-9_]+)$`)
	imgAttrs      = append([]string{"src", "alt", "width", "height", "border", "usemap", "onclick", "onerror", "onload"}, markup.CommonAttrs...)
)

// parseConditions resolves the conditional blocks of text.
func (o *Output) parseConditions(text string) string {
	out, _ := conditional.NewParser(o, o.logger).Parse(text)
	return out
}

// parseXML replaces every template tag of input with its output.
func (o *Output) parseXML(input string) string {
	var sb strings.Builder
	pos := 0
	for {
		tag, ok := markup.NextTag(input, pos)
		if !ok {
			break
		}
		sb.WriteString(input[pos:tag.Start])
		sb.WriteString(o.xmlCommand(tag.Name, markup.ParseAttributes(tag.Attrs)))
		pos = tag.End
	}
	sb.WriteString(input[pos:])
	return sb.String()
}

// xmlCommand renders a single template tag. Unknown tags render as "".
func (o *Output) xmlCommand(command string, attrs *model.Attributes) string {
	if cond := attrs.Get("condition"); cond != "" && !o.conditionMet(cond) {
		return ""
	}

	if command != "button" {
		for _, key := range []string{"title", "summary"} {
			if v := attrs.Get(key); v != "" && o.catalog.TextExists(v) {
				attrs.Set(key, o.Text(v, nil))
			}
		}
	}

	switch command {
	case "button":
		if attrs.Get("name") != "" || attrs.Get("command") != "" {
			return o.Button(attrs)
		}
	case "frame":
		return o.Frame(attrs, false)
	case "label":
		return o.label(attrs)
	case "add_label":
		o.AddLabel(strings.Split(attrs.Get("name"), ",")...)
	case "include":
		return o.include(attrs)
	case "plugin.include":
		hook := o.engine.hooks.Exec("template_plugin_include", plugin.Args(attrs.Map()))
		return hook.Content()
	case "container":
		name, id := attrs.Get("name"), attrs.Get("id")
		if name != "" && id != "" {
			o.Command("gui_container", name, id)
			hook := o.engine.hooks.Exec("template_container", plugin.Args(attrs.Map()))
			return hook.Content()
		}
	case "object":
		return o.object(attrs)
	case "link":
		attrs.Delete("condition")
		return markup.Tag("link", attrs)
	case "exp":
		return markup.Quote(expression.ToString(o.eval(attrs.Get("expression"))))
	case "var":
		ns, name, _ := strings.Cut(attrs.Get("name"), ":")
		return markup.Quote(displayValue(o.variable(ns, name)))
	case "form":
		return o.FormTag(attrs, "")
	}
	return ""
}

// label renders a localized text. The quoting attribute selects no/raw,
// js/javascript or HTML escaping (the default); html="true" means raw.
func (o *Output) label(attrs *model.Attributes) string {
	if exp := attrs.Get("expression"); exp != "" {
		attrs.Set("name", expression.ToString(o.eval(exp)))
	}
	name := attrs.Get("name")
	if name == "" {
		name = attrs.Get("command")
	}
	if name == "" {
		return ""
	}

	vars := map[string]string{"product": o.cfg.GetString("product_name")}
	for _, k := range attrs.Keys() {
		if k != "name" && k != "command" {
			vars[k] = attrs.Get(k)
		}
	}
	text := o.domainLabel(name, attrs.Get("domain"), vars)

	if attrs.Bool("noshow") {
		return ""
	}

	quoting := strings.ToLower(attrs.Get("quoting"))
	if quoting == "" && attrs.Bool("html") {
		quoting = "no"
	}
	switch quoting {
	case "no", "raw":
		return text
	case "javascript", "js":
		return markup.JSQuote(text)
	}
	return markup.Quote(text)
}

func (o *Output) domainLabel(name, domain string, vars map[string]string) string {
	if domain != "" && o.catalog.TextExists(domain+"."+name) {
		name = domain + "." + name
	}
	return o.Text(name, vars)
}

// include renders another template file. Relative names are looked up
// in the templates folder of the skin stack; the skinpath (or skin_path)
// attribute adds a path searched first.
func (o *Output) include(attrs *model.Attributes) string {
	file := attrs.Get("file")
	if file == "" {
		return ""
	}
	if !strings.HasPrefix(file, "/") {
		file = "/templates/" + file
	}
	addPath := attrs.Get("skinpath")
	if p := attrs.Get("skin_path"); p != "" {
		addPath = p
	}

	oldBase := o.ctx.BasePath
	defer func() { o.ctx.BasePath = oldBase }()

	url, skinPath, ok := o.GetSkinFile(file, addPath, false)
	if !ok {
		o.logger.Warn("Included file not found", "file", file, "template", o.ctx.TemplateName)
		return ""
	}
	o.ctx.BasePath = pluginSkinDir.ReplaceAllString(skinPath, "")

	path := filepath.Join(o.skinFinder().Root, url)
	data, err := os.ReadFile(path)
	if err != nil {
		o.logger.Warn("Failed to read included file", "file", path, "error", err)
		return ""
	}
	out := o.parseConditions(string(data))
	out = o.parseXML(out)
	return o.assets.FixPaths(out, o.ctx.Stack.Paths(), o.ctx.BasePath)
}

// object renders an application object through its handler or one of the
// built-in objects, then passes it through the template_object_<name>
// hook. Handler output is kept out of the path rewriting passes by a
// placeholder unless the object has a src attribute.
func (o *Output) object(attrs *model.Attributes) string {
	handler, object, ok := o.lookupHandler(attrs.Get("name"))
	content := ""
	external := false

	if ok {
		o.prepareObjectAttribs(attrs)
		external = attrs.Get("src") == ""
		content = handler(o, attrs)
	} else {
		content = o.builtinObject(object, attrs)
	}

	args := plugin.Args(attrs.Map())
	args["content"] = content
	hook := o.engine.hooks.Exec("template_object_"+object, args)
	content = hook.Content()

	if content != "" && external {
		return o.ctx.addPlaceholder(content)
	}
	return content
}

// prepareObjectAttribs localizes data-label-* attributes.
func (o *Output) prepareObjectAttribs(attrs *model.Attributes) {
	for _, k := range attrs.Keys() {
		if strings.HasPrefix(k, "data-label-") {
			attrs.Set(k, o.Text(attrs.Get(k), nil))
		}
	}
}

func (o *Output) builtinObject(object string, attrs *model.Attributes) string {
	switch object {
	case "doctype":
		return markup.Doctype(attrs.Get("value"))
	case "logo":
		return o.logo(attrs)
	case "productname":
		return markup.Quote(o.cfg.GetString("product_name"))
	case "version":
		return markup.Quote(Version)
	case "steptitle":
		return markup.Quote(o.PageTitle(false))
	case "pagetitle":
		return markup.Quote(o.PageTitle(true))
	case "contentframe":
		if attrs.Get("id") == "" {
			attrs.Set("id", "rcm"+o.envString("task")+"frame")
		}
		if m := frameSource.FindStringSubmatch(attrs.Get("src")); m != nil {
			attrs.Set("src", expression.ToString(o.variable(m[1], m[2])))
		}
		return o.Frame(attrs, true)
	case "meta":
		return o.tagList(o.skin.MetaTags.Keys(), o.skin.MetaTags.Get, "meta", "name", "content")
	case "links":
		return o.tagList(o.skin.LinkTags.Keys(), o.skin.LinkTags.Get, "link", "rel", "href")
	}
	return ""
}

// logo renders the product logo, taking the image from skin_logo.
func (o *Output) logo(attrs *model.Attributes) string {
	if !attrs.Has("alt") {
		attrs.Set("alt", o.xmlCommand("object", model.NewAttributes("name", "productname")))
	}

	if typ := attrs.Get("type"); typ != "" {
		if l, ok := o.TemplateLogo(":"+typ, true); ok {
			attrs.Set("src", l)
		} else if l, ok := o.TemplateLogo("", false); ok {
			attrs.Set("src", l)
		}
	} else if l, ok := o.TemplateLogo("", false); ok {
		attrs.Set("src", l)
	}

	for _, key := range attrs.Keys() {
		suffix, ok := strings.CutPrefix(key, "data-src-")
		if !ok {
			continue
		}
		if l, ok := o.TemplateLogo(":"+suffix, true); ok {
			attrs.Set(key, l)
		}
		if v := attrs.Get(key); v != "" {
			attrs.Set(key, o.AbsURL(v, false))
		} else {
			attrs.Delete(key)
		}
	}

	if attrs.Get("src") == "" {
		return ""
	}
	return markup.Tag("img", attrs, imgAttrs...)
}

// TemplateLogo returns the skin_logo entry for a template, by default the
// current one. Map entries are tried as "skin:template", "skin:*",
// "template" and "*"; strict matching skips the wildcards.
func (o *Output) TemplateLogo(name string, strict bool) (string, bool) {
	if name == "" {
		name = o.ctx.TemplateName
	}
	names := []string{o.skin.Name + ":" + name, o.skin.Name + ":*", name, "*"}

	switch logo := o.cfg.Get("skin_logo").(type) {
	case string:
		return logo, logo != ""
	case map[string]any:
		for _, key := range names {
			if strict && strings.HasSuffix(key, "*") {
				continue
			}
			if v, ok := logo[strings.ToLower(key)]; ok {
				return expression.ToString(v), true
			}
		}
	}
	return "", false
}

// tagList renders <meta> or <link> elements from skin metadata. A value
// is a string, a map of attributes or a list of either; false skips the
// entry, which lets a child skin remove a tag of its parent.
func (o *Output) tagList(keys []string, get func(string) (any, bool), tag, key, param string) string {
	var sb strings.Builder
	for _, name := range keys {
		raw, _ := get(name)
		var entries []any
		switch v := raw.(type) {
		case []any:
			entries = v
		default:
			entries = []any{v}
		}

		for _, entry := range entries {
			if b, ok := entry.(bool); ok && !b {
				continue
			}
			attrs := model.NewAttributes(key, name, "nl", "true")
			switch v := entry.(type) {
			case map[string]any:
				keys := make([]string, 0, len(v))
				for k := range v {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					attrs.Set(k, expression.ToString(v[k]))
				}
			default:
				attrs.Set(param, expression.ToString(v))
			}

			if tag == "link" && name == "shortcut icon" && attrs.Get(param) == "" {
				if href, ok := o.TemplateLogo(":favicon", true); ok && href != "" {
					attrs.Set(param, href)
				} else if href := expression.ToString(o.cfg.GetDefault("favicon", "/images/favicon.ico")); href != "" {
					attrs.Set(param, href)
				}
			}
			sb.WriteString(markup.Tag(tag, attrs))
		}
	}
	return sb.String()
}
