package logx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnonymizeIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.57:4242":          "203.0.113.0",
		"203.0.113.57":               "203.0.113.0",
		"[2001:db8:1:2:3:4:5:6]:443": "2001:db8:1:2::",
		"127.0.0.1:80":               "127.0.0.1",
		"not-an-ip":                  "unknown_ip",
	}
	for in, want := range tests {
		if got := AnonymizeIP(in); got != want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	Init(Options{Level: "disabled"})

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("", true).String() != "debug" || parseLevel("", false).String() != "info" {
		t.Fatal("default levels wrong")
	}
	if parseLevel("WARN", false).String() != "warn" {
		t.Fatal("explicit level ignored")
	}
	if parseLevel("loud", false).String() != "info" {
		t.Fatal("unknown level should fall back to info")
	}
}
