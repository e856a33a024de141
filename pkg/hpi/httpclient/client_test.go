package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func TestRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, r.Header.Get("User-Agent")+"|"+r.Header.Get("X-Token")+"|"+string(body))
	}))
	defer server.Close()

	client, err := New(Options{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}

	status, body, err := client.Request("post", server.URL, "daten", map[string]string{"X-Token": "geheim"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusAccepted {
		t.Errorf("expected 202, got %d", status)
	}
	if body != DefaultUserAgent+"|geheim|daten" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestRequestHeaderOverridesUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client, _ := New(Options{UserAgent: "konfiguriert"})
	_, body, _ := client.Request("GET", server.URL, "", nil)
	if body != "konfiguriert" {
		t.Errorf("expected configured agent, got %q", body)
	}

	_, body, _ = client.Request("GET", server.URL, "", map[string]string{"User-Agent": "programm"})
	if body != "programm" {
		t.Errorf("expected program agent, got %q", body)
	}
}

func TestRequestDecodesGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			io.WriteString(w, "unkomprimiert")
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		io.WriteString(gz, "komprimiert")
		gz.Close()
	}))
	defer server.Close()

	client, _ := New(Options{})
	_, body, err := client.Request("GET", server.URL, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "komprimiert" {
		t.Errorf("expected decoded body, got %q", body)
	}
}

func TestCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sitzung"); err == nil {
			io.WriteString(w, c.Value)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sitzung", Value: "42", Path: "/"})
		io.WriteString(w, "neu")
	}))
	defer server.Close()

	for _, tt := range []struct {
		cookies bool
		want    string
	}{{true, "42"}, {false, "neu"}} {
		client, err := New(Options{Cookies: tt.cookies})
		if err != nil {
			t.Fatal(err)
		}
		client.Request("GET", server.URL, "", nil)
		_, body, _ := client.Request("GET", server.URL, "", nil)
		if body != tt.want {
			t.Errorf("cookies=%v: expected %q, got %q", tt.cookies, tt.want, body)
		}
	}
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, _ := New(Options{Timeout: time.Second})
	if _, _, err := client.Request("GET", url, "", nil); err == nil {
		t.Error("expected transport error")
	}
	if _, _, err := client.Request("GET", "://kaputt", "", nil); err == nil {
		t.Error("expected error for malformed url")
	}
}
