package templating

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go-skin-renderer/internal/assets"
	"go-skin-renderer/internal/commands"
	"go-skin-renderer/internal/config"
	"go-skin-renderer/internal/expression"
	"go-skin-renderer/internal/i18n"
	"go-skin-renderer/internal/markup"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/session"
	"go-skin-renderer/internal/skin"
)

const (
	scriptsPath = "program/js/"
	charset     = "UTF-8"
)

// MainTasks are the tasks a button command can switch to directly.
var MainTasks = []string{"mail", "settings", "addressbook", "login", "logout", "utils", "dummy"}

// staticCommands can be called by URL without a script.
var staticCommands = []string{"compose", "list", "preferences", "folders", "identities"}

const license = `/*
        @licstart  The following is the entire license notice for the
        JavaScript code in this page.

        Copyright (C) The Roundcube Dev Team

        The JavaScript code in this page is free software: you can redistribute
        it and/or modify it under the terms of the GNU General Public License
        as published by the Free Software Foundation, either version 3 of
        the License, or (at your option) any later version.

        The code is distributed WITHOUT ANY WARRANTY; without even the implied
        warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
        See the GNU GPL for more details.

        @licend  The above is the entire license notice
        for the JavaScript code in this page.
*/`

var skinParam = regexp.MustCompile(`(?i)^[a-z0-9_-]+$`)

// Output is the page state of one request: environment, labels, client
// commands, scripts and the skin in use. It is not safe for concurrent use.
type Output struct {
	engine  *Engine
	req     *Request
	cfg     *config.Store
	catalog *i18n.Catalog
	assets  *assets.Rewriter
	logger  *slog.Logger

	ctx      *RenderContext
	skin     *model.Skin
	queue    commands.Queue
	handlers map[string]ObjectHandler

	env         map[string]any
	jsEnv       map[string]any
	jsLabels    map[string]string
	scripts     map[string]string
	scriptFiles map[string][]string
	cssFiles    []string
	header      string
	footer      string
	headers     http.Header

	pageTitle string
	message   string
	username  string
	framed    bool
	devel     bool

	buttonCount int
	frameCount  int
}

func newOutput(e *Engine, req *Request, cfg *config.Store, catalog *i18n.Catalog) *Output {
	o := &Output{
		engine:      e,
		req:         req,
		cfg:         cfg,
		catalog:     catalog,
		logger:      e.logger,
		headers:     make(http.Header),
		handlers:    make(map[string]ObjectHandler),
		buttonCount: 100,
	}
	o.clear(nil)
	o.init()
	return o
}

// clear empties the page state, keeping env.
func (o *Output) clear(env map[string]any) {
	o.env = make(map[string]any)
	o.jsEnv = make(map[string]any)
	for k, v := range env {
		o.env[k] = v
		o.jsEnv[k] = v
	}
	o.jsLabels = make(map[string]string)
	o.scripts = make(map[string]string)
	o.scriptFiles = make(map[string][]string)
	o.cssFiles = nil
	o.header = ""
	o.footer = ""
	o.queue.Reset()
}

// init applies the defaults every page starts with.
func (o *Output) init() {
	o.devel = o.cfg.GetBool("devel_mode")

	o.SetEnv("task", o.req.Task, true)
	o.SetEnv("standard_windows", o.cfg.GetBool("standard_windows"), true)
	o.SetEnv("locale", o.req.Language(), true)
	o.SetEnv("devel_mode", o.devel, true)
	o.SetEnv("rcversion", versionNumber(Version), true)
	o.SetEnv("cookie_domain", o.cfg.GetString("session_domain"), true)
	o.SetEnv("cookie_path", o.cfg.GetDefault("session_path", "/"), true)
	o.SetEnv("cookie_secure", o.cfg.GetBool("use_https"), true)

	o.mergeUserPrefs()

	// developers may switch skins by URL
	name := o.cfg.GetString("skin")
	if param := o.req.Param("skin"); o.devel && param != "" && skinParam.MatchString(param) && o.engine.resolver.Check(param) {
		name = param
		o.cfg.Set("skin", name)
		if o.req.Session != nil {
			if err := o.req.Session.Set("skin", name); err != nil {
				o.logger.Warn("Failed to save skin preference", "skin", name, "error", err)
			}
		}
	}

	o.assets = assets.New(o.engine.root, o.devel)
	o.SetSkin(name)
	o.SetAssetsPath(o.cfg.GetString("assets_path"), o.cfg.GetString("assets_dir"))

	if o.req.Param("_extwin") != "" {
		o.SetEnv("extwin", 1, true)
	}
	if o.framed || o.req.Param("_framed") != "" {
		o.SetEnv("framed", 1, true)
	}

	o.AddScript(license, "head_top")
	o.AddScript("var "+commands.JSObject+" = new rcube_webmail();", "head_top")
	o.AddScript(commands.JSObject+".init();", "docready")

	o.IncludeScript("jquery.min.js", "head")
	o.IncludeScript("common.js", "head")
	o.IncludeScript("app.js", "head")

	o.AddHandler("preloader", (*Output).preloader)
	o.AddHandler("username", (*Output).currentUsername)
	o.AddHandler("message", (*Output).messageContainer)
	o.AddHandler("charsetselector", (*Output).charsetSelector)
	o.AddHandler("aboutcontent", (*Output).aboutContent)
	o.AddHandler("loginform", (*Output).loginForm)

	o.SetEnv("blankpage", o.cfg.GetDefault("blankpage_url", "/watermark.html"), true)
}

// versionNumber turns "1.4.2" into 10402.
func versionNumber(v string) int {
	if i := strings.IndexFunc(v, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	weights := []int{10000, 100, 1}
	n := 0
	for i, p := range parts {
		if i >= len(weights) {
			break
		}
		d, _ := strconv.Atoi(p)
		n += d * weights[i]
	}
	return n
}

// Context returns the render context.
func (o *Output) Context() *RenderContext { return o.ctx }

// Config returns the configuration of this output, including the skin
// overlay.
func (o *Output) Config() *config.Store { return o.cfg }

// Request returns the request the output renders for.
func (o *Output) Request() *Request { return o.req }

// Headers returns the HTTP headers collected while rendering.
func (o *Output) Headers() http.Header { return o.headers }

// Skin returns the active skin.
func (o *Output) Skin() *model.Skin { return o.skin }

// SetEnv sets an environment value. It is mirrored into the client
// environment when addToJS is set or the name is mirrored already.
func (o *Output) SetEnv(name string, value any, addToJS bool) {
	o.env[name] = value
	if _, mirrored := o.jsEnv[name]; addToJS || mirrored {
		o.jsEnv[name] = value
	}
}

// Env returns an environment value.
func (o *Output) Env(name string) any { return o.env[name] }

func (o *Output) envString(name string) string {
	return expression.ToString(o.env[name])
}

// JSEnv returns a copy of the client environment.
func (o *Output) JSEnv() map[string]any {
	out := make(map[string]any, len(o.jsEnv))
	for k, v := range o.jsEnv {
		out[k] = v
	}
	return out
}

// AddHandler registers an object handler for this page only. It takes
// precedence over the engine registry.
func (o *Output) AddHandler(name string, h ObjectHandler) {
	o.handlers[strings.ToLower(name)] = h
}

func (o *Output) lookupHandler(name string) (ObjectHandler, string, bool) {
	name = strings.ToLower(name)
	if alias, ok := DeprecatedObjects[name]; ok {
		name = alias
	}
	if h, ok := o.handlers[name]; ok {
		return h, name, true
	}
	h, _, ok := o.engine.objects.Lookup(name)
	return h, name, ok
}

// mergeUserPrefs applies the "prefs" map of the session to the output
// config. Keys in dont_override keep their configured value, and the skin
// applied afterwards overrides and locks its own keys.
func (o *Output) mergeUserPrefs() {
	if o.req.Session == nil {
		return
	}
	v, ok := o.req.Session.Get(session.PrefsKey)
	if !ok || v == nil {
		return
	}
	prefs, ok := v.(map[string]any)
	if !ok {
		o.logger.Warn("Ignoring malformed user preferences", "type", fmt.Sprintf("%T", v))
		return
	}
	applied := o.cfg.MergePrefs(prefs)
	if len(applied) < len(prefs) {
		o.logger.Debug("Skipped locked user preferences", "applied", len(applied), "given", len(prefs))
	}
}

// SetSkin selects a skin, falling back to the default skin when name is
// invalid. The skin's config is applied over the output config and its
// keys are protected from user preferences. A cyclic extends chain is
// logged and the cut chain is used.
func (o *Output) SetSkin(name string) {
	sk, err := o.engine.resolver.Resolve(name)
	if err != nil {
		o.logger.Error("Invalid skin configuration", "skin", name, "error", err)
	}

	for _, key := range sk.ConfigOrder {
		o.cfg.Set(key, sk.Config[key])
	}
	o.cfg.AddDontOverride(sk.ConfigOrder...)

	for _, dir := range sk.LocalizationDirs {
		if err := o.catalog.LoadDir(filepath.Join(o.engine.root, dir)); err != nil {
			o.logger.Warn("Failed to load skin labels", "skin", sk.Name, "dir", dir, "error", err)
		}
	}

	o.skin = sk
	o.ctx = newRenderContext(sk.PathStack)
	o.cfg.Set("skin_path", o.ctx.BasePath)
	o.SetEnv("skin", sk.Name, true)
}

// SkinPath returns the path of the active skin.
func (o *Output) SkinPath() string { return o.ctx.Stack.Base() }

// TemplateExists reports whether a template is available on the stack.
func (o *Output) TemplateExists(name string) bool {
	return o.engine.loader.Exists(o.ctx.Stack, name)
}

// GetSkinFile resolves a skin file ("/..."), searching addPath first.
func (o *Output) GetSkinFile(file, addPath string, minified bool) (url, skinPath string, ok bool) {
	return o.assets.Finder().SkinFile(file, o.ctx.Stack.Paths(), addPath, minified)
}

// SetAssetsPath sets the URL prefix (and file location) of assets.
func (o *Output) SetAssetsPath(path, fsDir string) {
	o.assets.SetAssetsPath(path, fsDir)
	if p := o.assets.AssetsPath(); p != "" {
		o.SetEnv("assets_path", p, true)
	}
}

// AbsURL makes a skin relative reference ("/...") point into the skin.
func (o *Output) AbsURL(str string, searchPath bool) string {
	return o.assets.AbsURL(str, o.ctx.Stack.Paths(), o.ctx.BasePath, searchPath)
}

// AssetURL prefixes path with the assets path, passing it through AbsURL
// first when absURL is set.
func (o *Output) AssetURL(path string, absURL bool) string {
	if absURL {
		path = o.AbsURL(path, true)
	}
	return o.assets.AssetURL(path)
}

// AddScript appends inline code at a position: head_top, head, foot or
// docready.
func (o *Output) AddScript(code, position string) {
	if position == "" {
		position = "head"
	}
	o.scripts[position] += "\n" + strings.TrimRight(code, " \t\r\n")
}

// IncludeScript links a script file at a position: head, head_bottom or
// foot. Relative names are taken from the core script directory and
// cache-busted. Files are linked once.
func (o *Output) IncludeScript(file, position string) {
	if position == "" {
		position = "head"
	}
	if !absoluteURL.MatchString(file) && !strings.HasPrefix(file, "/") {
		file = o.assets.FileMod(scriptsPath + file)
	}
	for _, f := range o.scriptFiles[position] {
		if f == file {
			return
		}
	}
	o.scriptFiles[position] = append(o.scriptFiles[position], file)
}

var absoluteURL = regexp.MustCompile(`(?i)^https?://`)

// IncludeCSS links a stylesheet.
func (o *Output) IncludeCSS(file string) {
	o.cssFiles = append(o.cssFiles, file)
}

// AddHeader adds markup to the page head.
func (o *Output) AddHeader(s string) { o.header += "\n" + s }

// AddFooter adds markup before the end of the body.
func (o *Output) AddFooter(s string) { o.footer += "\n" + s }

// AddGUIObject registers an element with the client application.
func (o *Output) AddGUIObject(obj, id string) {
	o.AddScript(fmt.Sprintf("%s.gui_object('%s', '%s');", commands.JSObject, obj, id), "head")
}

// Command queues a client call.
func (o *Output) Command(method string, args ...any) {
	o.queue.Enqueue(method, args...)
}

// AddLabel sends localized labels to the client.
func (o *Output) AddLabel(names ...string) {
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			o.jsLabels[name] = o.Text(name, nil)
		}
	}
}

// Text returns the localized text of a label.
func (o *Output) Text(name string, vars map[string]string) string {
	return o.catalog.Translate(name, vars)
}

// domainText looks up a label in a plugin domain, falling back to the
// plain label.
func (o *Output) domainText(name, domain string) string {
	if domain != "" && o.catalog.TextExists(domain+"."+name) {
		return o.Text(domain+"."+name, nil)
	}
	return o.Text(name, nil)
}

// Catalog returns the label catalogue of this output.
func (o *Output) Catalog() *i18n.Catalog { return o.catalog }

// ShowMessage queues a display_message call. Known labels are localized
// with vars (HTML-escaped); unless override is set, an earlier message is
// kept.
func (o *Output) ShowMessage(message, typ string, vars map[string]string, override bool, timeout int) {
	if !override && o.message != "" {
		return
	}
	if typ == "" {
		typ = "notice"
	}
	text := message
	if o.catalog.TextExists(message) {
		quoted := make(map[string]string, len(vars))
		for k, v := range vars {
			quoted[k] = markup.Quote(v)
		}
		text = o.Text(message, quoted)
	}
	o.message = message
	o.Command("display_message", text, typ, timeout*1000)
}

// Reset drops scripts, labels and commands to start a new page. Unless
// all is set the embedding flags survive and the page defaults are
// restored. jQuery UI files are kept in both cases.
func (o *Output) Reset(all bool) {
	task := o.env["task"]

	var keep map[string]any
	if !all {
		keep = make(map[string]any)
		for _, k := range []string{"extwin", "framed"} {
			if v, ok := o.env[k]; ok {
				keep[k] = v
			}
		}
	}

	var css []string
	for _, f := range o.cssFiles {
		if strings.HasPrefix(f, "plugins/jqueryui") {
			css = append(css, f)
		}
	}
	scriptFiles := make(map[string][]string)
	for pos, files := range o.scriptFiles {
		for _, f := range files {
			if strings.HasPrefix(f, "plugins/jqueryui") {
				scriptFiles[pos] = append(scriptFiles[pos], f)
			}
		}
	}

	o.clear(keep)
	o.framed = o.framed || expression.Truthy(o.env["framed"])
	o.message = ""
	if !all {
		o.init()
	}

	o.cssFiles = append(o.cssFiles, css...)
	for pos, files := range scriptFiles {
		o.scriptFiles[pos] = append(o.scriptFiles[pos], files...)
	}
	o.SetEnv("orig_task", task, true)
}

// URL builds an application URL. _task defaults to the current task;
// keys without a leading underscore get one.
func (o *Output) URL(params map[string]string) string {
	q := make(map[string]string, len(params))
	for k, v := range params {
		if !strings.HasPrefix(k, "_") {
			k = "_" + k
		}
		q[k] = v
	}
	task := q["_task"]
	if task == "" {
		task = o.envString("task")
	}

	var sb strings.Builder
	sb.WriteString("./?_task=")
	sb.WriteString(url.QueryEscape(task))
	if action := q["_action"]; action != "" {
		sb.WriteString("&_action=")
		sb.WriteString(url.QueryEscape(action))
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		if k != "_task" && k != "_action" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("&")
		sb.WriteString(url.QueryEscape(k))
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(q[k]))
	}
	return sb.String()
}

// CommPath is the base URL of requests for the current task.
func (o *Output) CommPath() string {
	return "./?_task=" + url.QueryEscape(o.envString("task"))
}

// Redirect returns the location for a redirect, keeping the external
// window flag.
func (o *Output) Redirect(params map[string]string) string {
	if params == nil {
		params = make(map[string]string)
	}
	if expression.Truthy(o.env["extwin"]) {
		params["_extwin"] = "1"
	}
	return o.URL(params)
}

// SetPageTitle sets the page title.
func (o *Output) SetPageTitle(title string) { o.pageTitle = title }

// PageTitle returns the title of the page. The full title is prefixed
// with the user name in development mode, else with the product name.
func (o *Output) PageTitle(full bool) string {
	var title string
	switch {
	case o.pageTitle != "":
		title = o.pageTitle
	case o.envString("task") == "login":
		title = o.Text("welcome", map[string]string{"product": o.cfg.GetString("product_name")})
	default:
		title = i18n.UCFirst(o.envString("task"))
	}

	if full {
		user := ""
		if o.req.Session != nil {
			if v, ok := o.req.Session.Get("username"); ok {
				user = expression.ToString(v)
			}
		}
		if o.devel && user != "" {
			title = user + " :: " + title
		} else if product := o.cfg.GetString("product_name"); product != "" {
			title = product + " :: " + title
		}
	}
	return title
}

// PageHeaders adds the headers depending on page state: a framed page
// may not be served with X-Frame-Options deny.
func (o *Output) PageHeaders() {
	framed := o.framed || expression.Truthy(o.env["framed"])
	if !framed {
		return
	}
	if strings.EqualFold(o.cfg.GetString("x_frame_options"), "deny") {
		o.headers.Set("X-Frame-Options", "sameorigin")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// skinFinder exposes the file finder for include resolution.
func (o *Output) skinFinder() *skin.Finder { return o.assets.Finder() }
