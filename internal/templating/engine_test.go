package templating

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-skin-renderer/internal/config"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/plugin"
	"go-skin-renderer/internal/session"
	"go-skin-renderer/internal/storage"
)

// writeFile creates root/rel with content, making parent directories.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// newTestEngine sets up an install root with the default skin, core
// labels and the given extra files.
func newTestEngine(t *testing.T, files map[string]string) (*Engine, *plugin.Dispatcher, string) {
	t.Helper()
	root := t.TempDir()
	base := map[string]string{
		"skins/elastic/meta.json": `{"name": "Elastic"}`,
		"skins/elastic/templates/mail.html": `<!DOCTYPE html>
<html>
<head><title></title></head>
<body>
<h1><roundcube:object name="productname" /></h1>
</body>
</html>`,
		"program/localization/en_US.yaml": `welcome: "Welcome to $product"
compose: "Compose"
mail: "Mail"
partner: "Tom & Jerry"
`,
	}
	for rel, content := range base {
		if _, ok := files[rel]; !ok {
			writeFile(t, root, rel, content)
		}
	}
	for rel, content := range files {
		writeFile(t, root, rel, content)
	}

	store, err := storage.NewJSONStore(root, nil)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	hooks := plugin.NewDispatcher(nil)
	return NewEngine(config.New(), store, hooks, nil), hooks, root
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register("ContentFrame", func(out *Output, attrs *model.Attributes) string { return "frame" })

	h, name, ok := r.Lookup("addressframe")
	if !ok {
		t.Fatal("Lookup(addressframe) found no handler")
	}
	if name != "contentframe" {
		t.Errorf("normalized name = %q, want contentframe", name)
	}
	if got := h(nil, nil); got != "frame" {
		t.Errorf("handler returned %q", got)
	}

	if _, _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
}

func TestNewOutput_Defaults(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	out := e.NewOutput(&Request{Task: "mail"})

	if got := out.Env("task"); got != "mail" {
		t.Errorf("env task = %v, want mail", got)
	}
	if got := out.Env("skin"); got != "elastic" {
		t.Errorf("env skin = %v, want elastic", got)
	}
	if got := out.Env("rcversion"); got != 10402 {
		t.Errorf("env rcversion = %v, want 10402", got)
	}
	if got := out.SkinPath(); got != "skins/elastic" {
		t.Errorf("SkinPath() = %q, want skins/elastic", got)
	}
	if _, ok := out.JSEnv()["locale"]; !ok {
		t.Error("locale should be mirrored to the client environment")
	}
}

func TestNewOutput_ConfigIsolated(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	out := e.NewOutput(&Request{Task: "mail"})
	out.Config().Set("product_name", "Changed")

	if got := e.Config().GetString("product_name"); got == "Changed" {
		t.Error("output config changes leaked into the engine config")
	}
}

func TestNewOutput_DevelSkinSwitch(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{
		"skins/larry/meta.json": `{"name": "Larry"}`,
	})
	e.Config().Set("devel_mode", true)
	sess := session.NewMemoryStore(nil)

	out := e.NewOutput(&Request{Task: "mail", Params: map[string]string{"skin": "larry"}, Session: sess})
	if got := out.Skin().Name; got != "larry" {
		t.Errorf("skin = %q, want larry", got)
	}
	if v, _ := sess.Get("skin"); v != "larry" {
		t.Errorf("session skin = %v, want larry", v)
	}

	e.Config().Set("devel_mode", false)
	out = e.NewOutput(&Request{Task: "mail", Params: map[string]string{"skin": "larry"}})
	if got := out.Skin().Name; got != "elastic" {
		t.Errorf("skin without devel mode = %q, want elastic", got)
	}
}

func TestNewOutput_UserPrefs(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{
		"skins/larry/meta.json": `{"name": "Larry", "config": {"layout": "widescreen"}}`,
	})
	e.Config().Set("date_format", "Y-m-d")
	e.Config().Set("dont_override", []string{"date_format"})

	tests := []struct {
		name  string
		prefs any
		skin  string
		want  map[string]string
	}{
		{
			name: "applied",
			prefs: map[string]any{
				"skin":        "larry",
				"layout":      "list",
				"date_format": "d.m.Y",
				"timezone":    "Europe/Berlin",
			},
			skin: "larry",
			want: map[string]string{"layout": "widescreen", "date_format": "Y-m-d", "timezone": "Europe/Berlin"},
		},
		{
			name:  "malformed",
			prefs: "skin=larry",
			skin:  "elastic",
			want:  map[string]string{"date_format": "Y-m-d", "timezone": ""},
		},
		{
			name: "none",
			skin: "elastic",
			want: map[string]string{"date_format": "Y-m-d"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]any{}
			if tt.prefs != nil {
				values[session.PrefsKey] = tt.prefs
			}
			out := e.NewOutput(&Request{Task: "mail", Session: session.NewMemoryStore(values)})

			if got := out.Skin().Name; got != tt.skin {
				t.Errorf("skin = %q, want %q", got, tt.skin)
			}
			for key, want := range tt.want {
				if got := out.Config().GetString(key); got != want {
					t.Errorf("%s = %q, want %q", key, got, want)
				}
			}
		})
	}

	if got := e.Config().GetString("timezone"); got != "" {
		t.Errorf("user prefs leaked into the engine config: timezone = %q", got)
	}
}

func TestNewRequest(t *testing.T) {
	form := url.Values{"_action": {"send"}, "_token": {"abc"}}
	r := httptest.NewRequest(http.MethodPost, "/?_task=Settings&_action=show&_uid=5", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	r.AddCookie(&http.Cookie{Name: "roundcube_sessid", Value: "s1"})

	req := NewRequest(r, nil, "tok")
	if req.Task != "settings" {
		t.Errorf("Task = %q, want settings", req.Task)
	}
	if req.Action != "send" {
		t.Errorf("Action = %q, want send (POST wins)", req.Action)
	}
	if got := req.Param("uid"); got != "5" {
		t.Errorf("Param(uid) = %q, want 5", got)
	}
	if got := req.Cookies["roundcube_sessid"]; got != "s1" {
		t.Errorf("cookie = %q, want s1", got)
	}
	if !req.Browser["chrome"] || req.Browser["safari"] {
		t.Errorf("browser flags = %v, want chrome without safari", req.Browser)
	}
	if req.Token != "tok" {
		t.Errorf("Token = %q, want tok", req.Token)
	}
	if req.Query != "_task=Settings&_action=show&_uid=5" {
		t.Errorf("Query = %q", req.Query)
	}
}

func TestNewRequest_InvalidTask(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?_task=../etc", nil)
	if got := NewRequest(r, nil, "").Task; got != "mail" {
		t.Errorf("Task = %q, want mail", got)
	}
}

func TestRequest_Language(t *testing.T) {
	var req *Request
	if got := req.Language(); got != "en_US" {
		t.Errorf("nil request language = %q", got)
	}
	req = &Request{Session: session.NewMemoryStore(map[string]any{"language": "de_DE"})}
	if got := req.Language(); got != "de_DE" {
		t.Errorf("session language = %q, want de_DE", got)
	}
}

func TestDetectBrowser(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want []string
		not  []string
	}{
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			want: []string{"linux", "mz"},
			not:  []string{"webkit", "chrome", "ie", "win"},
		},
		{
			name: "safari on mac",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			want: []string{"mac", "webkit", "safari", "khtml"},
			not:  []string{"chrome", "mz"},
		},
		{
			name: "edge on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			want: []string{"win", "edge", "webkit"},
			not:  []string{"chrome", "safari"},
		},
		{
			name: "internet explorer",
			ua:   "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			want: []string{"win", "ie"},
			not:  []string{"mz", "webkit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DetectBrowser(tt.ua)
			for _, f := range tt.want {
				if !b[f] {
					t.Errorf("flag %s not set", f)
				}
			}
			for _, f := range tt.not {
				if b[f] {
					t.Errorf("flag %s should not be set", f)
				}
			}
		})
	}
}

func TestVersionNumber(t *testing.T) {
	tests := map[string]int{
		"1.4.2":    10402,
		"1.5-beta": 10500,
		"2.0":      20000,
	}
	for v, want := range tests {
		if got := versionNumber(v); got != want {
			t.Errorf("versionNumber(%q) = %d, want %d", v, got, want)
		}
	}
}

func TestOutput_URL(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	out := e.NewOutput(&Request{Task: "mail"})

	tests := []struct {
		params map[string]string
		want   string
	}{
		{map[string]string{"action": "show", "uid": "5"}, "./?_task=mail&_action=show&_uid=5"},
		{map[string]string{"_task": "settings"}, "./?_task=settings"},
		{map[string]string{"_mbox": "INBOX/Sent", "_action": "list"}, "./?_task=mail&_action=list&_mbox=INBOX%2FSent"},
	}
	for _, tt := range tests {
		if got := out.URL(tt.params); got != tt.want {
			t.Errorf("URL(%v) = %q, want %q", tt.params, got, tt.want)
		}
	}
	if got := out.CommPath(); got != "./?_task=mail" {
		t.Errorf("CommPath() = %q", got)
	}
}

func TestOutput_Redirect_KeepsExtwin(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	out := e.NewOutput(&Request{Task: "mail", Params: map[string]string{"_extwin": "1"}})
	if got := out.Redirect(map[string]string{"_action": "compose"}); got != "./?_task=mail&_action=compose&_extwin=1" {
		t.Errorf("Redirect() = %q", got)
	}
}

func TestOutput_PageTitle(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.Config().Set("product_name", "Webmail")

	out := e.NewOutput(&Request{Task: "login"})
	if got := out.PageTitle(false); got != "Welcome to Webmail" {
		t.Errorf("login title = %q", got)
	}

	out = e.NewOutput(&Request{Task: "mail"})
	if got := out.PageTitle(true); got != "Webmail :: Mail" {
		t.Errorf("task title = %q, want Webmail :: Mail", got)
	}
	out.SetPageTitle("Inbox")
	if got := out.PageTitle(true); got != "Webmail :: Inbox" {
		t.Errorf("set title = %q", got)
	}

	e.Config().Set("devel_mode", true)
	sess := session.NewMemoryStore(map[string]any{"username": "jane"})
	out = e.NewOutput(&Request{Task: "mail", Session: sess})
	out.SetPageTitle("Inbox")
	if got := out.PageTitle(true); got != "jane :: Inbox" {
		t.Errorf("devel title = %q, want jane :: Inbox", got)
	}
}

func TestOutput_Reset(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	out := e.NewOutput(&Request{Task: "mail", Params: map[string]string{"_framed": "1"}})
	out.SetEnv("custom", "x", true)
	out.AddLabel("compose")
	out.Command("list_mailbox")

	out.Reset(false)
	if got := out.Env("framed"); got != 1 {
		t.Errorf("framed after Reset(false) = %v, want 1", got)
	}
	if got := out.Env("custom"); got != nil {
		t.Errorf("custom env survived Reset: %v", got)
	}
	if got := out.Env("orig_task"); got != "mail" {
		t.Errorf("orig_task = %v, want mail", got)
	}
	if out.queue.Len() != 0 || len(out.jsLabels) != 0 {
		t.Error("commands and labels should be dropped")
	}
	if !strings.Contains(out.scripts["head_top"], "new rcube_webmail()") {
		t.Error("Reset(false) should restore the page defaults")
	}

	out.Reset(true)
	if got := out.Env("framed"); got != nil {
		t.Errorf("framed after Reset(true) = %v, want nil", got)
	}
	if out.scripts["head_top"] != "" {
		t.Error("Reset(true) should not restore the page defaults")
	}
}

func TestOutput_ShowMessage(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{
		"program/localization/en_US.yaml": `saved: "Saved $name"` + "\n",
	})
	out := e.NewOutput(&Request{Task: "mail"})

	out.ShowMessage("saved", "confirmation", map[string]string{"name": "<b>"}, false, 2)
	out.ShowMessage("ignored", "", nil, false, 0)

	cmds := out.queue.Commands()
	if len(cmds) != 1 {
		t.Fatalf("queued %d commands, want 1", len(cmds))
	}
	want := []any{"Saved &lt;b&gt;", "confirmation", 2000}
	for i, arg := range want {
		if cmds[0].Args[i] != arg {
			t.Errorf("arg %d = %v, want %v", i, cmds[0].Args[i], arg)
		}
	}

	out.ShowMessage("plain text", "error", nil, true, 0)
	if got := out.queue.Len(); got != 2 {
		t.Errorf("override should queue a second message, got %d", got)
	}
}

func TestOutput_PageHeaders(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.Config().Set("x_frame_options", "deny")

	out := e.NewOutput(&Request{Task: "mail", Params: map[string]string{"_framed": "1"}})
	out.PageHeaders()
	if got := out.Headers().Get("X-Frame-Options"); got != "sameorigin" {
		t.Errorf("X-Frame-Options = %q, want sameorigin", got)
	}

	out = e.NewOutput(&Request{Task: "mail"})
	out.PageHeaders()
	if got := out.Headers().Get("X-Frame-Options"); got != "" {
		t.Errorf("unframed page got X-Frame-Options %q", got)
	}
}

func TestOutput_AbsURLAndAssetURL(t *testing.T) {
	engine, _, _ := newTestEngine(t, map[string]string{
		"skins/elastic/images/logo.png": "png",
		"skins/larry/meta.json":         `{"name": "Larry", "extends": "elastic"}`,
	})
	out := engine.NewOutput(nil)
	out.SetSkin("larry")

	tests := []struct {
		in         string
		searchPath bool
		want       string
	}{
		{"/images/logo.png", true, "skins/elastic/images/logo.png"},
		{"/images/logo.png", false, "skins/larry/images/logo.png"},
		{"/images/missing.png", true, "skins/larry/images/missing.png"},
		{"https://example.com/x.png", true, "https://example.com/x.png"},
		{"program/js/app.js", true, "program/js/app.js"},
	}
	for _, tt := range tests {
		if got := out.AbsURL(tt.in, tt.searchPath); got != tt.want {
			t.Errorf("AbsURL(%q, %v) = %q, want %q", tt.in, tt.searchPath, got, tt.want)
		}
	}

	out.SetAssetsPath("https://cdn.example.com/rc", "")
	if got := out.AssetURL("/images/logo.png", true); got != "https://cdn.example.com/rc/skins/elastic/images/logo.png" {
		t.Errorf("AssetURL(abs) = %q", got)
	}
	if got := out.AssetURL("?_task=mail", false); got != "?_task=mail" {
		t.Errorf("AssetURL(query) = %q, want unchanged", got)
	}
	if got := out.Env("assets_path"); got != "https://cdn.example.com/rc/" {
		t.Errorf("env assets_path = %v", got)
	}
}

func TestOutput_TemplateExists(t *testing.T) {
	engine, _, _ := newTestEngine(t, map[string]string{
		"skins/larry/meta.json":                    `{"name": "Larry", "extends": "elastic"}`,
		"skins/larry/templates/login.html":         `<form></form>`,
		"skins/elastic/templates/showcontact.html": `<div></div>`,
	})
	out := engine.NewOutput(nil)
	out.SetSkin("larry")

	for name, want := range map[string]bool{
		"login":   true,
		"mail":    true,
		"contact": true,
		"compose": false,
	} {
		if got := out.TemplateExists(name); got != want {
			t.Errorf("TemplateExists(%q) = %v, want %v", name, got, want)
		}
	}
}
