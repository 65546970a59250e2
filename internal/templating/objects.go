package templating

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go-skin-renderer/internal/commands"
	"go-skin-renderer/internal/expression"
	"go-skin-renderer/internal/i18n"
	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/session"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ConfigDir holds about pages, relative to the install root.
const ConfigDir = "config"

var (
	listSplit   = regexp.MustCompile(`[\s,]+`)
	charsetName = regexp.MustCompile(`^[A-Z0-9-]+$`)
	selectAttrs = []string{"id", "name", "class", "style", "size", "tabindex"}
)

// charsets lists the selectable charsets with the label naming their
// script.
var charsets = []struct{ name, label string }{
	{"UTF-8", "unicode"},
	{"US-ASCII", "english"},
	{"ISO-8859-1", "westerneuropean"},
	{"ISO-8859-2", "easterneuropean"},
	{"ISO-8859-4", "baltic"},
	{"ISO-8859-5", "cyrillic"},
	{"ISO-8859-6", "arabic"},
	{"ISO-8859-7", "greek"},
	{"ISO-8859-8", "hebrew"},
	{"ISO-8859-9", "turkish"},
	{"ISO-8859-10", "nordic"},
	{"ISO-8859-11", "thai"},
	{"ISO-8859-13", "baltic"},
	{"ISO-8859-14", "celtic"},
	{"ISO-8859-15", "westerneuropean"},
	{"ISO-8859-16", "southeasterneuropean"},
	{"WINDOWS-1250", "easterneuropean"},
	{"WINDOWS-1251", "cyrillic"},
	{"WINDOWS-1252", "westerneuropean"},
	{"WINDOWS-1253", "greek"},
	{"WINDOWS-1254", "turkish"},
	{"WINDOWS-1255", "hebrew"},
	{"WINDOWS-1256", "arabic"},
	{"WINDOWS-1257", "baltic"},
	{"WINDOWS-1258", "vietnamese"},
	{"ISO-2022-JP", "japanese"},
	{"ISO-2022-KR", "korean"},
	{"ISO-2022-CN", "chinese"},
	{"EUC-JP", "japanese"},
	{"EUC-KR", "korean"},
	{"EUC-CN", "chinese"},
	{"BIG5", "chinese"},
	{"GB2312", "chinese"},
	{"KOI8-R", "cyrillic"},
}

// messageContainer renders the element status messages are shown in.
func (o *Output) messageContainer(attrs *model.Attributes) string {
	attrs.SetDefault("id", "rcmMessageContainer")
	o.AddGUIObject("message", attrs.Get("id"))
	return markup.Container("div", attrs, "", markup.CommonAttrs...)
}

// charsetSelector renders a select box of charsets. The posted _charset
// wins over the selected attribute, which wins over the page charset.
func (o *Output) charsetSelector(attrs *model.Attributes) string {
	field := model.NewAttributes("name", "_charset")
	for _, k := range selectAttrs {
		if v, ok := attrs.Lookup(k); ok {
			field.Set(k, v)
		}
	}

	set := o.req.Param("_charset")
	if set == "" {
		set = attrs.Get("selected")
	}
	if set == "" {
		set = charset
	}
	set = strings.ToUpper(set)

	type option struct{ value, text string }
	options := make([]option, 0, len(charsets)+1)
	known := false
	for _, c := range charsets {
		text := c.name
		if strings.HasPrefix(c.name, "WINDOWS-") {
			text = "Windows-" + strings.TrimPrefix(c.name, "WINDOWS-")
		} else if c.name == "US-ASCII" {
			text = "ASCII"
		}
		options = append(options, option{c.name, text + " (" + o.Text(c.label, nil) + ")"})
		known = known || c.name == set
	}
	if !known && charsetName.MatchString(set) {
		options = append(options, option{set, set})
	}

	var sb strings.Builder
	for _, opt := range options {
		a := model.NewAttributes("value", opt.value)
		if opt.value == set {
			a.Set("selected", "selected")
		}
		sb.WriteString(markup.Container("option", a, markup.Quote(opt.text), "value", "selected"))
	}
	return markup.Container("select", field, "\n"+sb.String(), selectAttrs...)
}

// aboutContent includes about.<lang>.html from the config directory,
// trying the full locale, the language and the plain name. A Markdown
// about.*.md is rendered when no HTML file exists.
func (o *Output) aboutContent(attrs *model.Attributes) string {
	lang := o.req.Language()
	bases := []string{"about." + lang, "about." + i18n.LangCode(lang), "about"}
	dir := filepath.Join(o.engine.root, ConfigDir)

	for _, ext := range []string{".html", ".md"} {
		for _, base := range bases {
			data, err := os.ReadFile(filepath.Join(dir, base+ext))
			if err != nil {
				continue
			}
			content := string(data)
			if ext == ".md" {
				html, err := renderMarkdown(data)
				if err != nil {
					o.logger.Warn("Failed to render about page", "file", base+ext, "error", err)
					return ""
				}
				content = html
			}
			content = o.parseConditions(content)
			return o.parseXML(content)
		}
	}
	return ""
}

func renderMarkdown(src []byte) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// currentUsername returns the session user: the login name when it is an
// e-mail address, else the email or username of the session.
func (o *Output) currentUsername(attrs *model.Attributes) string {
	if o.username != "" {
		return o.username
	}
	user := session.Username(o.req.Session)
	if !strings.Contains(user, "@") && o.req.Session != nil {
		if v, ok := o.req.Session.Get("email"); ok {
			if email, ok := v.(string); ok && email != "" {
				user = email
			}
		}
	}
	o.username = markup.Quote(user)
	return o.username
}

// preloader queues images for preloading once the page is ready.
func (o *Output) preloader(attrs *model.Attributes) string {
	var images []string
	for _, img := range listSplit.Split(attrs.Get("images"), -1) {
		if img != "" {
			images = append(images, o.AssetURL(o.AbsURL(img, false), false))
		}
	}
	if len(images) == 0 || o.req.Param("_task") == "logout" {
		return ""
	}
	list, err := commands.JSON(images, o.devel)
	if err != nil {
		o.logger.Warn("Failed to encode preload list", "error", err)
		return ""
	}
	o.AddScript("var images = "+list+";\n"+
		"            for (var i=0; i<images.length; i++) {\n"+
		"                img = new Image();\n"+
		"                img.src = images[i];\n"+
		"            }", "docready")
	return ""
}

// SearchForm renders the quick search box, wrapped in its own form unless
// form or no-form is set. It is not registered by default; tasks with a
// search register it as the searchform object.
func (o *Output) SearchForm(attrs *model.Attributes) string {
	o.AddLabel("searching")

	attrs = attrs.Clone()
	attrs.Set("name", "_q")
	attrs.Set("class", strings.TrimSpace(attrs.Get("class")+" no-bs"))
	if attrs.Get("id") == "" {
		attrs.Set("id", "rcmqsearchbox")
	}
	if attrs.Get("type") == "search" && !o.req.Browser["khtml"] {
		attrs.Delete("type", "results")
	}
	if attrs.Get("placeholder") == "" {
		attrs.Set("placeholder", o.Text("searchplaceholder", nil))
	}
	id := attrs.Get("id")

	label := markup.Container("label", model.NewAttributes("for", id, "class", "voice"),
		markup.Quote(o.Text("arialabelsearchterms", nil)), "for", "class")
	input := model.NewAttributes("type", "text")
	for _, k := range attrs.Keys() {
		input.Set(k, attrs.Get(k))
	}
	out := label + markup.Tag("input", input, append([]string{"name", "type", "placeholder", "size", "autocomplete", "spellcheck"}, markup.CommonAttrs...)...)

	if gui := attrs.Get("gui-object"); gui != "false" {
		if gui == "" {
			gui = "qsearchbox"
		}
		o.AddGUIObject(gui, id)
	}

	if attrs.Get("form") == "" && attrs.Get("no-form") == "" {
		formName := attrs.Get("form-name")
		if formName == "" {
			formName = "rcmqsearchform"
		}
		command := attrs.Get("command")
		if command == "" {
			command = "search"
		}
		out = o.FormTag(model.NewAttributes(
			"name", formName,
			"onsubmit", commands.JSObject+".command('"+markup.JSQuote(command)+"'); return false",
		), out)
	}

	if wrapper := attrs.Get("wrapper"); wrapper != "" {
		resetCommand := attrs.Get("reset-command")
		if resetCommand == "" {
			resetCommand = "reset-search"
		}
		reset := o.Button(model.NewAttributes(
			"type", "link", "command", resetCommand, "class", "button reset",
			"label", "resetsearch", "title", "resetsearch", "tabindex", "0", "innerclass", "inner",
		))
		search := o.Button(model.NewAttributes(
			"type", "link", "href", "#search", "class", "button search",
			"label", attrs.Get("buttontitle"), "title", attrs.Get("buttontitle"), "tabindex", "0", "innerclass", "inner",
		))
		out = markup.Container("div", model.NewAttributes("role", "search", "class", wrapper),
			out+"\n"+reset+"\n"+search, markup.CommonAttrs...)
	}
	return out
}

// loginForm renders the login form: user, password and, depending on
// default_host, a host field. login_autocomplete below 1 disables
// autocompletion of user and host, below 2 also of the password.
func (o *Output) loginForm(attrs *model.Attributes) string {
	autocomplete := o.cfg.GetInt("login_autocomplete")
	formName := attrs.Get("form")
	if formName == "" {
		formName = "form"
	}

	redirect := o.req.Param("_url")
	if redirect == "" && !logoutQuery.MatchString(o.req.Query) {
		redirect = o.req.Query
	}

	input := func(typ, name, id, value string, off bool) string {
		a := model.NewAttributes("type", typ, "name", name, "id", id, "autocapitalize", "off", "value", value)
		if size := attrs.Get("size"); size != "" {
			a.Set("size", size)
		}
		if typ != "hidden" {
			a.Set("required", "required")
		}
		if off {
			a.Set("autocomplete", "off")
		}
		return markup.Tag("input", a, "type", "name", "id", "size", "autocapitalize", "value", "required", "autocomplete")
	}

	hidden := markup.HiddenField("_task", "login") +
		markup.HiddenField("_action", "login") +
		markup.Tag("input", model.NewAttributes("type", "hidden", "name", "_timezone", "id", "rcmlogintz", "value", "_default_"), "type", "name", "id", "value") +
		markup.Tag("input", model.NewAttributes("type", "hidden", "name", "_url", "id", "rcmloginurl", "value", redirect), "type", "name", "id", "value")

	rows := []struct{ label, id, field string }{
		{"username", "rcmloginuser", input("text", "_user", "rcmloginuser", o.req.Param("_user"), autocomplete < 1)},
		{"password", "rcmloginpwd", input("password", "_pass", "rcmloginpwd", "", autocomplete < 2)},
	}

	hosts := o.loginHosts()
	switch {
	case hosts == nil:
		rows = append(rows, struct{ label, id, field string }{"server", "rcmloginhost",
			input("text", "_host", "rcmloginhost", o.req.Param("_host"), autocomplete < 1)})
	case len(hosts) > 1:
		selected := o.req.Param("_host")
		var sb strings.Builder
		for _, h := range hosts {
			a := model.NewAttributes("value", h, "nl", "false")
			if h == selected {
				a.Set("selected", "selected")
			}
			sb.WriteString(markup.Container("option", a, markup.Quote(h), "value", "selected"))
		}
		field := markup.Container("select", model.NewAttributes("name", "_host", "id", "rcmloginhost"), sb.String(), "name", "id")
		rows = append(rows, struct{ label, id, field string }{"server", "rcmloginhost", field})
	case len(hosts) == 1 && hosts[0] != "":
		hidden += markup.HiddenField("_host", hosts[0])
	}

	var table strings.Builder
	for _, row := range rows {
		label := markup.Container("label", model.NewAttributes("for", row.id, "nl", "false"), markup.Quote(o.Text(row.label, nil)), "for")
		table.WriteString("<tr><td class=\"title\">" + label + "</td><td class=\"input\">" + row.field + "</td></tr>\n")
	}
	out := hidden + "\n" + markup.Container("table", model.NewAttributes(), "<tbody>\n"+table.String()+"</tbody>")

	if expression.Truthy(attrs.Get("submit")) {
		button := markup.Container("button", model.NewAttributes("type", "submit", "id", "rcmloginsubmit", "class", "button mainaction submit", "nl", "false"),
			markup.Quote(o.Text("login", nil)), "type", "id", "class")
		out += "\n" + markup.Container("p", model.NewAttributes("class", "formbuttons"), button, "class")
	}

	o.AddGUIObject("loginform", formName)
	o.IncludeScript("jstz.min.js", "head")

	if attrs.Get("form") == "" {
		out = o.FormTag(model.NewAttributes("name", formName, "method", "post"), out)
	}
	return out
}

var logoutQuery = regexp.MustCompile(`_(task|action)=logout`)

// loginHosts returns the configured default_host entries. A plain host
// name yields a single entry, an unset option nil.
func (o *Output) loginHosts() []string {
	switch v := o.cfg.Get("default_host").(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	hosts := o.cfg.GetStringSlice("default_host")
	if len(hosts) == 0 {
		return nil
	}
	return hosts
}
