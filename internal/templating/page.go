package templating

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go-skin-renderer/internal/commands"
	"go-skin-renderer/internal/i18n"
	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/plugin"
	"go-skin-renderer/internal/skin"
)

const defaultTemplate = "<html>\n<head><title></title></head>\n<body></body>\n</html>"

var (
	headOpen    = regexp.MustCompile(`(?i)(<head(?:\s[^>]*)?>)\n*`)
	globalVar   = regexp.MustCompile(`\$(__[a-z0-9_\-]+)`)
	formOpen    = regexp.MustCompile(`(?i)<form\s+([^>]+)>`)
	emptyScript = regexp.MustCompile(`\s*<script[^>]+></script>\s*`)
)

// Send renders the named template and writes the page to w. The name
// "iframe" writes an empty page relaying the queued commands to the parent
// window. A missing template writes an error page and returns the
// NotFound error. A render started while another one is in progress is
// skipped with ErrRecursion.
func (o *Output) Send(w io.Writer, name string) error {
	if name == "iframe" {
		o.framed = true
		return o.Write(w, "")
	}
	if o.ctx.rendering {
		o.logger.Warn("Recursion alert: ignoring output send", "template", name, "rendering", o.ctx.TemplateName)
		return &model.TemplateError{Kind: model.ErrRecursion, Name: name}
	}

	output, err := o.render(name, true)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			o.logger.Error("Error loading template", "template", name, "error", err)
			if perr := o.RaiseError(w, 404, "Error loading template for "+name); perr != nil {
				return errors.Join(err, perr)
			}
		}
		return err
	}
	return o.Write(w, strings.TrimSpace(output))
}

// Parse renders the named template and returns it without the page
// assembly, for use as a fragment. It may run inside a page render, e.g.
// from an object handler.
func (o *Output) Parse(name string) (string, error) {
	nested := o.ctx.rendering
	output, err := o.render(name, false)
	if err != nil {
		return "", err
	}
	if nested {
		// the enclosing page adds the request token to its forms
		return o.ctx.substitute(output), nil
	}
	return o.postrender(output), nil
}

// render loads a template and resolves its conditions and tags, then
// passes it through the render_page hook. A nested render restores the
// template name and base path of the enclosing one when done.
func (o *Output) render(name string, write bool) (string, error) {
	if o.ctx.rendering {
		outerName, outerBase := o.ctx.TemplateName, o.ctx.BasePath
		defer func() {
			o.ctx.TemplateName = outerName
			o.ctx.BasePath = outerBase
		}()
	} else {
		o.ctx.rendering = true
		defer func() { o.ctx.rendering = false }()
	}
	o.ctx.TemplateName = name

	var output string
	err := o.engine.loader.Load(o.ctx.Stack, name, func(t *skin.Template) error {
		o.cfg.Set("skin_path", t.SkinPath)
		o.ctx.BasePath = t.BasePath

		out := o.parseConditions(t.Content)
		out = o.parseXML(out)

		hook := o.engine.hooks.Exec("render_page", plugin.Args{
			"template": name,
			"content":  out,
			"write":    write,
		})
		output = hook.Content()
		return nil
	})
	return output, err
}

// JustParse resolves the conditions and tags of input and puts object
// contents back. Paths are not rewritten.
func (o *Output) JustParse(input string) string {
	input = o.parseConditions(input)
	input = o.parseXML(input)
	return o.postrender(input)
}

// Write assembles the page around template (the default document when
// empty) and writes it to w. When all queued commands go to the parent
// window, scripts and header/footer markup are left out unless the page
// reports a server error.
func (o *Output) Write(w io.Writer, template string) error {
	if len(o.scriptFiles) > 0 {
		o.SetEnv("request_token", o.req.Token, true)
	}
	if blank, ok := o.jsEnv["blankpage"].(string); ok && blank != "" {
		o.jsEnv["blankpage"] = o.AssetURL(o.AbsURL(blank, true), false)
	}

	code, framed, err := o.queue.Serialize(commands.Options{
		Framed: o.framed,
		Unlock: o.req.Param("_unlock"),
		Env:    o.jsEnv,
		Labels: o.jsLabels,
		Pretty: o.devel,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize client commands: %w", err)
	}

	if framed && o.jsEnv["server_error"] == nil {
		o.scripts = make(map[string]string)
		o.scriptFiles = make(map[string][]string)
		o.header = ""
		o.footer = ""
	}
	if code != "" {
		o.AddScript(code, "head_top")
	}

	o.PageHeaders()
	return o.write(w, template)
}

func (o *Output) write(w io.Writer, output string) error {
	output = strings.TrimSpace(output)
	empty := output == ""
	if empty {
		output = markup.Doctype("html5") + "\n" + defaultTemplate
	}

	if ready := o.scripts["docready"]; ready != "" {
		o.AddScript("$(function(){ "+ready+"\n});", "foot")
	}

	if lang := o.req.Language(); lang != "" {
		code := i18n.LangCode(lang)
		output = strings.Replace(output, "<html", `<html lang="`+markup.Quote(code)+`"`, 1)
		o.headers.Set("Content-Language", code)
	}

	o.headers.Set("Content-Type", "text/html; charset="+charset)
	meta := markup.Tag("meta", model.NewAttributes(
		"http-equiv", "content-type",
		"content", "text/html; charset="+charset,
		"nl", "true",
	))
	meta += "<title>" + markup.Quote(o.PageTitle(true)) + "</title>\n"

	var header, footer strings.Builder
	replaced := false
	output = replaceFirst(headOpen, output, func(m []string) string {
		replaced = true
		return m[1] + "\n" + meta
	})
	if !replaced {
		header.WriteString(meta)
	}

	for _, f := range o.scriptFiles["head"] {
		header.WriteString(markup.ScriptFile(f))
	}
	if inline := o.scripts["head_top"] + o.scripts["head"]; strings.TrimSpace(inline) != "" {
		header.WriteString(markup.InlineScript(inline))
	}
	header.WriteString(o.header + "\n")
	for _, f := range o.scriptFiles["head_bottom"] {
		header.WriteString(markup.ScriptFile(f))
	}

	for _, f := range o.scriptFiles["foot"] {
		footer.WriteString(markup.ScriptFile(f))
	}
	footer.WriteString(o.footer + "\n")
	if foot := o.scripts["foot"]; strings.TrimSpace(foot) != "" {
		footer.WriteString(markup.InlineScript(foot))
	}

	output = insertHeader(output, header.String())
	output = insertFooter(output, footer.String())

	if len(o.cssFiles) > 0 && !empty {
		pos := indexFold(output, "<script ")
		if pos < 0 {
			pos = indexFold(output, "</head>")
		}
		if pos >= 0 {
			var css strings.Builder
			for _, f := range o.cssFiles {
				rel := "stylesheet"
				if strings.HasSuffix(strings.ToLower(f), ".less") {
					rel = "stylesheet/less"
				}
				css.WriteString(markup.Tag("link", model.NewAttributes("rel", rel, "type", "text/css", "href", f, "nl", "true")))
			}
			output = output[:pos] + css.String() + output[pos:]
		}
	}

	output = o.assets.FixPaths(output, o.ctx.Stack.Paths(), o.ctx.BasePath)
	output = o.parseWithGlobals(output)
	output = o.assets.FixAssetsPaths(output)
	output = o.postrender(output)

	hook := o.engine.hooks.Exec("send_page", plugin.Args{"content": output})
	if hook.Abort() {
		o.logger.Debug("Page output aborted by plugin", "template", o.ctx.TemplateName)
		return &model.TemplateError{Kind: model.ErrAbort, Name: o.ctx.TemplateName}
	}
	if _, err := io.WriteString(w, hook.Content()); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

// insertHeader puts the page header before </head>. Without a head it is
// wrapped in one and placed before <body>, after <html ...>, or first.
func insertHeader(output, header string) string {
	pos := indexFold(output, "</head>")
	if pos >= 0 {
		header += "\n"
	} else {
		pos = indexFold(output, "<body")
		if pos < 0 {
			if html := indexFold(output, "<html"); html >= 0 {
				if end := strings.IndexByte(output[html:], '>'); end >= 0 {
					pos = html + end + 1
				}
			}
		}
		header = "<head>\n" + header + "\n</head>\n"
	}
	if pos < 0 {
		return header + output
	}
	return output[:pos] + header + output[pos:]
}

// insertFooter puts the page footer before the last </body> (or </html>),
// moving up over blank lines and empty script tags ending the body.
func insertFooter(output, footer string) string {
	pos := lastIndexFold(output, "</body>")
	if pos < 0 {
		pos = lastIndexFold(output, "</html>")
	}
	if pos < 0 {
		return output + "\n" + footer
	}
	for {
		nl := strings.LastIndex(output[:pos], "\n")
		if nl <= 0 {
			break
		}
		chunk := output[nl:pos]
		if strings.TrimSpace(chunk) != "" && !emptyScript.MatchString(chunk) {
			break
		}
		pos = nl
	}
	return output[:pos] + footer + "\n" + output[pos:]
}

// parseWithGlobals replaces $__version, $__comm_path and $__skin_path.
// Unknown globals are removed.
func (o *Output) parseWithGlobals(input string) string {
	globals := map[string]string{
		"__version":   markup.Quote(Version),
		"__comm_path": markup.Quote(o.CommPath()),
		"__skin_path": markup.Quote(o.ctx.BasePath),
	}
	return globalVar.ReplaceAllStringFunc(input, func(m string) string {
		return globals[m[1:]]
	})
}

// postrender puts object contents back and adds the request token to
// POST forms.
func (o *Output) postrender(output string) string {
	output = o.ctx.substitute(output)
	return replaceAll(formOpen, output, func(m []string) string {
		attrs := markup.ParseAttributes(m[1])
		if strings.EqualFold(attrs.Get("method"), "post") {
			return m[0] + "\n" + markup.HiddenField("_token", o.req.Token)
		}
		return m[0]
	})
}

// RaiseError writes an error page. The error template of the skin is used
// when it exists; it finds the code and message in env error_code and
// error_message.
func (o *Output) RaiseError(w io.Writer, code int, message string) error {
	o.Reset(false)
	o.SetEnv("server_error", code, true)
	o.SetEnv("error_code", code, false)
	o.SetEnv("error_message", message, false)
	o.SetPageTitle("Error " + strconv.Itoa(code))

	if o.TemplateExists("error") {
		output, err := o.render("error", true)
		if err == nil {
			return o.Write(w, strings.TrimSpace(output))
		}
		o.logger.Error("Failed to render error page", "error", err)
	}

	page := "<!DOCTYPE html>\n<html>\n<head><title></title></head>\n<body>\n" +
		"<h1>" + markup.Quote(fmt.Sprintf("Error %d", code)) + "</h1>\n" +
		"<p>" + markup.Quote(message) + "</p>\n" +
		"</body>\n</html>"
	return o.Write(w, page)
}

func replaceFirst(re *regexp.Regexp, s string, fn func([]string) string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return s[:loc[0]] + fn(groups) + s[loc[1]:]
}

func replaceAll(re *regexp.Regexp, s string, fn func([]string) string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		return fn(re.FindStringSubmatch(m))
	})
}

// indexFold and lastIndexFold search ASCII case-insensitively; offsets
// stay valid for s.
func indexFold(s, sub string) int {
	return strings.Index(lowerASCII(s), lowerASCII(sub))
}

func lastIndexFold(s, sub string) int {
	return strings.LastIndex(lowerASCII(s), lowerASCII(sub))
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
