package httpclient

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Adda-Baaj/dakiya/pkg/httpresponse"
)

type fakeTransport struct {
	result   *Result
	openErr  error
	settings *Settings
	opened   int
	closed   int
}

func (f *fakeTransport) Open() (Handle, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	return &fakeHandle{t: f}, nil
}

type fakeHandle struct {
	t *fakeTransport
}

func (h *fakeHandle) Execute(_ context.Context, s *Settings) *Result {
	h.t.settings = s
	if h.t.result == nil {
		return &Result{}
	}
	return h.t.result
}

func (h *fakeHandle) Close() error {
	h.t.closed++
	return nil
}

const okRaw = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhi"

func okResult() *Result {
	return &Result{Raw: []byte(okRaw), HeaderSize: len(okRaw) - 2, StatusCode: 200}
}

func TestGetAppendsPayloadToURL(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))

	if _, err := c.Get(context.Background(), "example.com/api", Form{"page": 2}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ft.settings.URL != "example.com/api?page=2" {
		t.Fatalf("unexpected url %q", ft.settings.URL)
	}
	if ft.settings.Body != "" {
		t.Fatalf("GET should not carry a body, got %q", ft.settings.Body)
	}

	if _, err := c.Get(context.Background(), "example.com/api?x=1", Form{"page": 2, "q": "a b"}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ft.settings.URL != "example.com/api?x=1&page=2&q=a+b" {
		t.Fatalf("unexpected url %q", ft.settings.URL)
	}
}

func TestGetEmptyPayloadLeavesURL(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))

	for _, p := range []Payload{nil, Raw(""), Form{}} {
		if _, err := c.Get(context.Background(), "https://example.com/a", p); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ft.settings.URL != "https://example.com/a" {
			t.Fatalf("url modified: %q", ft.settings.URL)
		}
	}
}

func TestPostAndPutSendFormBody(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))

	if _, err := c.Post(context.Background(), "https://example.com/items", Form{"name": "x&y", "n": 1}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if ft.settings.Method != "POST" || ft.settings.Body != "n=1&name=x%26y" {
		t.Fatalf("unexpected settings %+v", ft.settings)
	}
	if ft.settings.URL != "https://example.com/items" {
		t.Fatalf("url modified: %q", ft.settings.URL)
	}

	if _, err := c.Put(context.Background(), "https://example.com/items/1", Raw("a=1&b=2")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ft.settings.Method != "PUT" || ft.settings.Body != "a=1&b=2" {
		t.Fatalf("unexpected settings %+v", ft.settings)
	}
}

func TestRequestMethodBehavior(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))

	if _, err := c.Request(context.Background(), "head", "https://example.com", Form{"a": 1}); err != nil {
		t.Fatalf("HEAD: %v", err)
	}
	if !ft.settings.NoBody || ft.settings.Method != "HEAD" || ft.settings.Body != "" {
		t.Fatalf("unexpected HEAD settings %+v", ft.settings)
	}

	if _, err := c.Request(context.Background(), "PURGE", "https://example.com", Raw("x=1")); err != nil {
		t.Fatalf("PURGE: %v", err)
	}
	if ft.settings.Method != "PURGE" || ft.settings.Body != "x=1" || ft.settings.NoBody {
		t.Fatalf("unexpected custom method settings %+v", ft.settings)
	}
}

func TestRequestAppliesDefaults(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft), WithUserAgent("agent/1"))

	if _, err := c.Get(context.Background(), "https://example.com", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	s := ft.settings
	if !s.IncludeHeaders || !s.ReturnTransfer || !s.FollowRedirects || !s.VerifyPeer || !s.VerifyHost {
		t.Fatalf("unexpected default flags %+v", s)
	}
	if s.ConnectTimeout != 30*time.Second || s.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeouts %v/%v", s.ConnectTimeout, s.Timeout)
	}
	if s.UserAgent != "agent/1" {
		t.Fatalf("unexpected user agent %q", s.UserAgent)
	}

	c = New(WithTransport(ft))
	if _, err := c.Get(context.Background(), "https://example.com", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ft.settings.UserAgent != DefaultUserAgent {
		t.Fatalf("expected fallback user agent, got %q", ft.settings.UserAgent)
	}
}

func TestRequestHeadersAndOptionOverrides(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))
	c.Headers["X-B"] = "2"
	c.Headers["X-A"] = "1"
	if err := c.SetOption("CURLOPT_SSL_VERIFYPEER", false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if err := c.SetOption("timeout", "5"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	c.Options[OptionUserAgent] = "override/2"

	if _, err := c.Get(context.Background(), "https://example.com", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	s := ft.settings
	if len(s.Headers) != 2 || s.Headers[0] != "X-A: 1" || s.Headers[1] != "X-B: 2" {
		t.Fatalf("unexpected header lines %v", s.Headers)
	}
	if s.VerifyPeer {
		t.Fatalf("expected verify peer override")
	}
	if s.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", s.Timeout)
	}
	if s.UserAgent != "override/2" {
		t.Fatalf("expected user agent override, got %q", s.UserAgent)
	}
}

func TestRequestRejectsInvalidOptionBeforeOpening(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))
	c.Options[OptionFollowRedirects] = "sometimes"

	if _, err := c.Get(context.Background(), "https://example.com", nil); err == nil {
		t.Fatalf("expected option validation error")
	}
	if ft.opened != 0 {
		t.Fatalf("transport should not be opened on invalid options")
	}

	if err := c.SetOption("no_such_option", 1); err == nil {
		t.Fatalf("expected unknown option error")
	}
}

func TestRequestTransportError(t *testing.T) {
	ft := &fakeTransport{result: &Result{ErrCode: 6, ErrMessage: "Could not resolve host"}}
	c := New(WithTransport(ft))

	_, err := c.Get(context.Background(), "https://nope.invalid", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if err.Error() != "6 - Could not resolve host" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if ft.closed != 1 {
		t.Fatalf("handle must be released on error, closed=%d", ft.closed)
	}
}

func TestRequestEmptyResult(t *testing.T) {
	ft := &fakeTransport{result: &Result{}}
	c := New(WithTransport(ft))

	resp, err := c.Request(context.Background(), "HEAD", "https://example.com", nil)
	if err != nil || resp != nil {
		t.Fatalf("expected nil response and nil error, got %v %v", resp, err)
	}
	if ft.closed != 1 {
		t.Fatalf("handle must be released on empty result, closed=%d", ft.closed)
	}
}

func TestRequestParsesAndMirrors(t *testing.T) {
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))

	resp, err := c.Get(context.Background(), "https://example.com", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Body != "hi" || resp.Header("Content-Type") != "text/plain" || resp.StatusCode() != 200 {
		t.Fatalf("unexpected response %q %v", resp.Body, resp.Headers.Map())
	}
	if c.Body != "hi" || c.ResponseHeader.Get("Status") != "200 OK" {
		t.Fatalf("client mirror not updated: %q %v", c.Body, c.ResponseHeader.Map())
	}
	if ft.opened != 1 || ft.closed != 1 {
		t.Fatalf("expected one open/close, got %d/%d", ft.opened, ft.closed)
	}
}

func TestRequestParseError(t *testing.T) {
	ft := &fakeTransport{result: &Result{Raw: []byte("garbage")}}
	c := New(WithTransport(ft))

	_, err := c.Get(context.Background(), "https://example.com", nil)
	var perr *httpresponse.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *httpresponse.ParseError, got %v", err)
	}
	if ft.closed != 1 {
		t.Fatalf("handle must be released, closed=%d", ft.closed)
	}
}

func TestRequestOpenError(t *testing.T) {
	ft := &fakeTransport{openErr: errors.New("no handles")}
	c := New(WithTransport(ft))
	if _, err := c.Get(context.Background(), "https://example.com", nil); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestFormEncode(t *testing.T) {
	f := Form{
		"b":    true,
		"a":    "x y",
		"skip": nil,
		"list": []string{"1", "2"},
		"off":  false,
	}
	if got := f.Encode(); got != "a=x+y&b=1&list=1&list=2&off=0" {
		t.Fatalf("unexpected encoding %q", got)
	}

	vals := url.Values{"k": {"v"}}
	ft := &fakeTransport{result: okResult()}
	c := New(WithTransport(ft))
	if _, err := c.Post(context.Background(), "https://example.com", vals); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if ft.settings.Body != "k=v" {
		t.Fatalf("url.Values payload not encoded: %q", ft.settings.Body)
	}
}

func TestParseOptionAliases(t *testing.T) {
	cases := map[string]Option{
		"follow_location":        OptionFollowRedirects,
		"CURLOPT_FOLLOWLOCATION": OptionFollowRedirects,
		"FollowLocation":         OptionFollowRedirects,
		"connect-timeout":        OptionConnectTimeout,
		"CURLOPT_SSL_VERIFYHOST": OptionVerifyHost,
		"useragent":              OptionUserAgent,
		"max_redirs":             OptionMaxRedirects,
	}
	for name, want := range cases {
		got, err := ParseOption(name)
		if err != nil {
			t.Fatalf("ParseOption(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseOption(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOptionNormalize(t *testing.T) {
	if v, err := OptionTimeout.Normalize("1500ms"); err != nil || v != 1500*time.Millisecond {
		t.Fatalf("duration string: %v %v", v, err)
	}
	if v, err := OptionTimeout.Normalize(3); err != nil || v != 3*time.Second {
		t.Fatalf("duration int: %v %v", v, err)
	}
	if _, err := OptionTimeout.Normalize(-1); err == nil {
		t.Fatalf("expected negative duration error")
	}
	if v, err := OptionVerifyHost.Normalize(0); err != nil || v != false {
		t.Fatalf("bool int: %v %v", v, err)
	}
	if _, err := OptionMaxRedirects.Normalize(true); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestTransportErrorCodeDescriptions(t *testing.T) {
	if CodeCouldntResolveHost.Description() != "Could not resolve host" {
		t.Fatalf("unexpected description %q", CodeCouldntResolveHost.Description())
	}
	err := &TransportError{Code: CodeOperationTimedOut, Description: CodeOperationTimedOut.Description()}
	if err.Error() != "28 - Timeout was reached" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
