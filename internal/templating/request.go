package templating

import (
	"net/http"
	"regexp"
	"strings"

	"go-skin-renderer/internal/i18n"
	"go-skin-renderer/internal/session"
)

// Request is the part of an HTTP request a render depends on.
type Request struct {
	Task    string
	Action  string
	Params  map[string]string // GET and POST values, POST wins
	Query   string            // raw query string
	Cookies map[string]string
	Browser Browser
	Session session.Store
	Token   string // CSRF token added to POST forms
}

// NewRequest collects the render inputs of r. token is the request's CSRF
// token; sess may be nil.
func NewRequest(r *http.Request, sess session.Store, token string) *Request {
	req := &Request{
		Params:  make(map[string]string),
		Query:   r.URL.RawQuery,
		Cookies: make(map[string]string),
		Browser: DetectBrowser(r.UserAgent()),
		Session: sess,
		Token:   token,
	}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			req.Params[k] = v[0]
		}
	}
	if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			if len(v) > 0 {
				req.Params[k] = v[0]
			}
		}
	}
	for _, c := range r.Cookies() {
		req.Cookies[c.Name] = c.Value
	}
	req.Task = validTask(req.Params["_task"])
	req.Action = req.Params["_action"]
	return req
}

var taskName = regexp.MustCompile(`^[a-z0-9_-]+$`)

func validTask(task string) string {
	task = strings.ToLower(task)
	if !taskName.MatchString(task) {
		return "mail"
	}
	return task
}

// Param returns a request value, accepting names with or without the
// leading underscore.
func (r *Request) Param(name string) string {
	if r == nil || r.Params == nil {
		return ""
	}
	if v, ok := r.Params[name]; ok {
		return v
	}
	if !strings.HasPrefix(name, "_") {
		return r.Params["_"+name]
	}
	return ""
}

// Language returns the session language, or the default locale.
func (r *Request) Language() string {
	if r == nil {
		return i18n.DefaultLanguage
	}
	if lang := session.Language(r.Session); lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}

// Browser holds capability flags of the requesting client, looked up by
// the browser: namespace.
type Browser map[string]bool

// DetectBrowser derives flags from a User-Agent header.
func DetectBrowser(ua string) Browser {
	lc := strings.ToLower(ua)
	b := Browser{
		"win":    strings.Contains(lc, "win"),
		"mac":    strings.Contains(lc, "mac"),
		"linux":  strings.Contains(lc, "linux"),
		"unix":   strings.Contains(lc, "unix"),
		"webkit": strings.Contains(lc, "applewebkit"),
		"edge":   strings.Contains(lc, "edge/") || strings.Contains(lc, "edg/"),
		"opera":  strings.Contains(lc, "opera") || strings.Contains(lc, "opr/"),
		"ie":     strings.Contains(lc, "compatible; msie") || strings.Contains(lc, "trident/"),
		"mobile": strings.Contains(lc, "mobile"),
	}
	b["chrome"] = !b["edge"] && !b["opera"] && strings.Contains(lc, "chrome")
	b["safari"] = !b["chrome"] && !b["edge"] && !b["opera"] && strings.Contains(lc, "safari")
	b["mz"] = !b["ie"] && !b["edge"] && !b["webkit"] && strings.Contains(lc, "mozilla")
	b["khtml"] = b["webkit"] || strings.Contains(lc, "khtml")
	return b
}
