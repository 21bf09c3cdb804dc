package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adda-Baaj/dakiya/internal/app"
	"github.com/Adda-Baaj/dakiya/internal/config"
	"github.com/Adda-Baaj/dakiya/pkg/httpclient"
)

func testSessionFactory(t *testing.T) sessionFactory {
	t.Helper()
	return testSessionFactoryWithProfiles(t, "")
}

func testSessionFactoryWithProfiles(t *testing.T, profilesFile string) sessionFactory {
	t.Helper()
	cfg := &config.Config{
		ProfilesFile:           profilesFile,
		AppName:                "dakiya",
		ConnectTimeout:         2 * time.Second,
		Timeout:                2 * time.Second,
		FollowRedirects:        true,
		MaxRedirects:           5,
		VerifyTLS:              true,
		HistoryType:            "bbolt",
		BBoltPath:              filepath.Join(t.TempDir(), "history.db"),
		HistoryTTL:             time.Hour,
		HistoryCleanupInterval: time.Hour,
	}
	return func(ctx context.Context) (*app.Session, error) {
		return app.NewSession(ctx, cfg, nil)
	}
}

func execute(t *testing.T, factory sessionFactory, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(factory)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGetCommandPrintsHeadAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "page=2&tag=a&tag=b" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if got := r.Header.Get("X-Trace"); got != "1" {
			t.Errorf("missing header, got %q", got)
		}
		w.Header().Set("X-Served-By", "cli-test")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	factory := testSessionFactory(t)
	out, err := execute(t, factory, "get", srv.URL, "-d", "page=2", "-d", "tag=a", "-d", "tag=b", "-H", "X-Trace: 1", "-i")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\n") {
		t.Fatalf("missing status line in %q", out)
	}
	if !strings.Contains(out, "X-Served-By: cli-test\n") || !strings.HasSuffix(out, "\n\nhello") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, factory, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "GET") || !strings.Contains(out, "200 OK") {
		t.Fatalf("history missing exchange: %q", out)
	}
}

func TestRequestCommandSelectsNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		_, _ = w.Write([]byte(`<ul><li>one</li><li>two</li></ul>`))
	}))
	defer srv.Close()

	out, err := execute(t, testSessionFactory(t), "request", "patch", srv.URL, "--data-raw", "a=1", "--select", "li")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if out != "one\ntwo\n" {
		t.Fatalf("unexpected selection %q", out)
	}
}

func TestCommandReportsTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := execute(t, testSessionFactory(t), "post", addr, "-d", "a=1")
	if err == nil || !strings.HasPrefix(err.Error(), "7 - ") {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestRequestFlagsValidation(t *testing.T) {
	f := &requestFlags{headers: []string{"NoColon"}}
	if _, err := f.call("GET", "http://x"); err == nil {
		t.Fatalf("expected header parse error")
	}

	f = &requestFlags{data: []string{"a=1", "a=2", "b="}, options: []string{"timeout=5"}}
	call, err := f.call("GET", "http://x")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := call.Payload.(httpclient.Form).Encode(); got != "a=1&a=2&b=" {
		t.Fatalf("unexpected payload %q", got)
	}
	if call.Options["timeout"] != "5" {
		t.Fatalf("option not parsed: %v", call.Options)
	}
}

func TestMetaResolvesAgainstProfileURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blog/posts/1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="img/a.png"></head></html>`))
	}))
	defer srv.Close()

	profilesFile := filepath.Join(t.TempDir(), "profiles.yaml")
	yaml := "profiles:\n  - id: blog\n    base_url: " + srv.URL + "/blog\n"
	if err := os.WriteFile(profilesFile, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	out, err := execute(t, testSessionFactoryWithProfiles(t, profilesFile), "get", "posts/1", "--profile", "blog", "--meta")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := `"image_url": "` + srv.URL + `/blog/posts/img/a.png"`
	if !strings.Contains(out, want) {
		t.Fatalf("expected %s in %q", want, out)
	}
}
