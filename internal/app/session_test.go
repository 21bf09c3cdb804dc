package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adda-Baaj/dakiya/internal/config"
	"github.com/Adda-Baaj/dakiya/pkg/httpclient"
	"github.com/Adda-Baaj/dakiya/pkg/publishers"
)

type recordingPublisher struct {
	events []publishers.Event
	err    error
}

func (r *recordingPublisher) ID() string   { return "rec" }
func (r *recordingPublisher) Type() string { return "stub" }
func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) error {
	r.events = append(r.events, evt)
	return r.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:                "dakiya",
		UserAgent:              "session-test/1",
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
}

func TestSessionDoRecordsAndPublishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "session-test/1" {
			t.Errorf("unexpected user agent %q", got)
		}
		if got := r.Header.Get("X-Trace"); got != "abc" {
			t.Errorf("missing call header, got %q", got)
		}
		w.Header().Set("X-Served-By", "test")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))
	defer srv.Close()

	pub := &recordingPublisher{err: errors.New("sink down")}
	sess, err := NewSession(context.Background(), testConfig(t), nil, WithPublishers(pub))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	resp, err := sess.Do(context.Background(), Call{
		Method:  "post",
		URL:     srv.URL,
		Payload: httpclient.Form{"name": "x"},
		Headers: map[string]string{"X-Trace": "abc"},
	})
	if err != nil {
		t.Fatalf("sink failure must not fail the call: %v", err)
	}
	if resp.Body != "created" || resp.StatusCode() != http.StatusCreated {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Body)
	}

	history, err := sess.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 recorded exchange, got %d", len(history))
	}
	ex := history[0]
	if ex.Method != "POST" || ex.StatusCode != http.StatusCreated || ex.BodyBytes != len("created") {
		t.Fatalf("unexpected exchange %+v", ex)
	}
	if ex.Headers["X-Served-By"] != "test" {
		t.Fatalf("response headers not recorded: %v", ex.Headers)
	}
	if _, ok := ex.Headers["Status-Code"]; ok {
		t.Fatalf("status keys should not be stored as headers")
	}

	if len(pub.events) != 1 || pub.events[0].Exchange.ID != ex.ID || pub.events[0].Source != "dakiya" {
		t.Fatalf("expected the recorded exchange to be published, got %+v", pub.events)
	}
}

func TestSessionDoRecordsTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	pub := &recordingPublisher{}
	sess, err := NewSession(context.Background(), testConfig(t), nil, WithPublishers(pub))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	_, err = sess.Do(context.Background(), Call{URL: addr})
	var terr *httpclient.TransportError
	if !errors.As(err, &terr) || terr.Code != httpclient.CodeCouldntConnect {
		t.Fatalf("expected connect failure, got %v", err)
	}

	history, _ := sess.History(0)
	if len(history) != 1 || history[0].ErrorCode != int(httpclient.CodeCouldntConnect) || !history[0].Failed() {
		t.Fatalf("failed exchange not recorded: %+v", history)
	}
	if len(pub.events) != 1 || !pub.events[0].Exchange.Failed() {
		t.Fatalf("failed exchange not published")
	}
}

func TestSessionAppliesProfiles(t *testing.T) {
	var gotPath, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotAccept = r.Header.Get("Accept")
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.ProfilesFile = filepath.Join(t.TempDir(), "profiles.yaml")
	profilesYAML := "profiles:\n" +
		"  - id: api\n" +
		"    base_url: " + srv.URL + "/v1\n" +
		"    headers:\n" +
		"      Accept: application/json\n" +
		"    options:\n" +
		"      followlocation: \"false\"\n"
	if err := os.WriteFile(cfg.ProfilesFile, []byte(profilesYAML), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	sess, err := NewSession(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	resp, err := sess.Do(context.Background(), Call{
		Profile: "api",
		URL:     "users",
		Payload: httpclient.Form{"page": 2},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotPath != "/v1/users?page=2" || gotAccept != "application/json" {
		t.Fatalf("profile not applied: path=%q accept=%q", gotPath, gotAccept)
	}
	if resp.StatusCode() != http.StatusFound {
		t.Fatalf("profile option should disable redirects, got %d", resp.StatusCode())
	}

	if target, err := sess.Target(Call{Profile: "api", URL: "users"}); err != nil || target != srv.URL+"/v1/users" {
		t.Fatalf("Target = %q, %v", target, err)
	}
	if _, err := sess.Target(Call{URL: "  "}); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := sess.Do(context.Background(), Call{Profile: "missing", URL: "x"}); err == nil {
		t.Fatalf("expected unknown profile error")
	}
	if _, err := sess.Do(context.Background(), Call{URL: srv.URL, Options: map[string]string{"bogus": "1"}}); err == nil {
		t.Fatalf("expected unknown option error")
	}
}
