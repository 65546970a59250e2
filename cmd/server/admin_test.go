package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/justinas/nosurf"

	"go-skin-renderer/internal/config"
)

func newDevelApplication(t *testing.T) (*application, http.Handler) {
	t.Helper()
	cfg := config.New()
	cfg.Set("devel_mode", true)
	app := newTestApplication(t, cfg)
	return app, app.routes()
}

// loginToken fetches the login page and returns its form token and cookies.
func loginToken(t *testing.T, router http.Handler) (string, []*http.Cookie) {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?_task=login", nil))
	m := tokenField.FindStringSubmatch(rr.Body.String())
	if m == nil {
		t.Fatalf("login form has no _token field:\n%s", rr.Body.String())
	}
	return m[1], rr.Result().Cookies()
}

func TestAdmin_DisabledOutsideDevelMode(t *testing.T) {
	app := newTestApplication(t, nil)

	rr := httptest.NewRecorder()
	app.routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/skins", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestAdmin_Skins(t *testing.T) {
	_, router := newDevelApplication(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/skins", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var skins []skinInfo
	if err := json.NewDecoder(rr.Body).Decode(&skins); err != nil {
		t.Fatalf("decoding skin list failed: %v", err)
	}
	if len(skins) != 1 {
		t.Fatalf("got %d skins, want 1: %+v", len(skins), skins)
	}
	if skins[0].Name != "elastic" || skins[0].Title != "Elastic" {
		t.Errorf("skin = %+v", skins[0])
	}
	if len(skins[0].Paths) != 1 || skins[0].Paths[0] != "skins/elastic" {
		t.Errorf("paths = %v, want [skins/elastic]", skins[0].Paths)
	}
}

func TestAdmin_TemplateContent(t *testing.T) {
	_, router := newDevelApplication(t)

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"existing template", "/api/admin/skins/elastic/templates/mail.html", http.StatusOK, `<roundcube:object name="productname" />`},
		{"missing template", "/api/admin/skins/elastic/templates/settings.html", http.StatusNotFound, ""},
		{"invalid filename", "/api/admin/skins/elastic/templates/meta.json", http.StatusBadRequest, ""},
		{"missing skin", "/api/admin/skins/larry/templates/mail.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.body != "" && !strings.Contains(rr.Body.String(), tt.body) {
				t.Errorf("body missing %q:\n%s", tt.body, rr.Body.String())
			}
		})
	}
}

func TestAdmin_Preview(t *testing.T) {
	_, router := newDevelApplication(t)
	token, cookies := loginToken(t, router)

	body := `{"content": "<b><roundcube:object name=\"productname\" /></b>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/preview/elastic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(nosurf.HeaderName, token)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := rr.Body.String(); got != "<b>Roundcube Webmail</b>" {
		t.Errorf("preview = %q", got)
	}
}

func TestAdmin_PreviewWithoutToken(t *testing.T) {
	_, router := newDevelApplication(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/preview/elastic", strings.NewReader(`{"content": ""}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAdmin_Reload(t *testing.T) {
	_, router := newDevelApplication(t)
	token, cookies := loginToken(t, router)

	for path, want := range map[string]int{
		"/api/admin/skins/elastic/reload": http.StatusNoContent,
		"/api/admin/skins/larry/reload":   http.StatusNotFound,
	} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(nosurf.HeaderName, token)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("POST %s status = %d, want %d", path, rr.Code, want)
		}
	}
}
