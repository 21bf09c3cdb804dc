package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Adda-Baaj/dakiya/pkg/httpresponse"
)

// Client dispatches requests through a Transport and parses the results.
//
// Headers and Options are applied to every call. Body and ResponseHeader
// mirror the last successful response. A Client carries unsynchronized state
// and must not be used from multiple goroutines at once; use one Client per
// call sequence or guard it externally.
type Client struct {
	Headers map[string]string
	Options map[Option]any

	Body           string
	ResponseHeader *httpresponse.Header

	defaults  Defaults
	transport Transport
	log       Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// New builds a Client with the stock defaults and a resty transport.
func New(opts ...ClientOption) *Client {
	c := &Client{
		Headers:  make(map[string]string),
		Options:  make(map[Option]any),
		defaults: DefaultDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewRestyTransport()
	}
	c.log = ensureLogger(c.log)
	return c
}

// WithDefaults replaces the client-wide defaults.
func WithDefaults(d Defaults) ClientOption {
	return func(c *Client) { c.defaults = d }
}

// WithUserAgent sets the default user agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.defaults.UserAgent = ua }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaults.Timeout = d }
}

func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaults.ConnectTimeout = d }
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) { c.defaults.FollowRedirects = follow }
}

// WithVerifyTLS toggles both peer and host verification.
func WithVerifyTLS(verify bool) ClientOption {
	return func(c *Client) { c.defaults.VerifyTLS = verify }
}

func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

func WithLogger(log Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// SetOption validates and stores an override by generic name.
func (c *Client) SetOption(name string, value any) error {
	opt, err := ParseOption(name)
	if err != nil {
		return err
	}
	norm, err := opt.Normalize(value)
	if err != nil {
		return err
	}
	if c.Options == nil {
		c.Options = make(map[Option]any)
	}
	c.Options[opt] = norm
	return nil
}

func (c *Client) Get(ctx context.Context, url string, payload Payload) (*httpresponse.Response, error) {
	return c.Request(ctx, http.MethodGet, url, payload)
}

func (c *Client) Post(ctx context.Context, url string, payload Payload) (*httpresponse.Response, error) {
	return c.Request(ctx, http.MethodPost, url, payload)
}

func (c *Client) Put(ctx context.Context, url string, payload Payload) (*httpresponse.Response, error) {
	return c.Request(ctx, http.MethodPut, url, payload)
}

// Request issues a single call. It returns a *TransportError when the
// transport reports a failure and a *httpresponse.ParseError when the raw
// response cannot be parsed. A nil Response with a nil error means the
// transport produced no output, as for an unbuffered transfer.
func (c *Client) Request(ctx context.Context, method, url string, payload Payload) (*httpresponse.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.buildSettings(method, url, payload)
	if err != nil {
		return nil, err
	}

	c.log.DebugObj("dispatching request", "request", map[string]any{
		"method": s.Method,
		"url":    s.URL,
	})

	res, err := c.execute(ctx, s)
	if err != nil {
		return nil, err
	}

	if res.ErrCode != CodeOK {
		terr := &TransportError{Code: res.ErrCode, Description: res.ErrMessage}
		c.log.WarnObj("transport call failed", "transport_error", map[string]any{
			"method": s.Method,
			"url":    s.URL,
			"code":   int(res.ErrCode),
			"error":  res.ErrMessage,
		})
		return nil, terr
	}
	if len(res.Raw) == 0 {
		return nil, nil
	}

	var resp *httpresponse.Response
	if s.IncludeHeaders {
		resp, err = httpresponse.Parse(res.Raw, &httpresponse.Meta{HeaderSize: res.HeaderSize})
		if err != nil {
			return nil, err
		}
	} else {
		resp = &httpresponse.Response{Body: string(res.Raw), Headers: httpresponse.NewHeader()}
	}

	c.Body = resp.Body
	c.ResponseHeader = resp.Headers

	c.log.DebugObj("request completed", "response", map[string]any{
		"method":      s.Method,
		"url":         s.URL,
		"status_code": res.StatusCode,
		"elapsed_ms":  res.TotalTime.Milliseconds(),
	})
	return resp, nil
}

// execute runs s on a fresh handle and always releases it.
func (c *Client) execute(ctx context.Context, s *Settings) (res *Result, err error) {
	handle, err := c.transport.Open()
	if err != nil {
		return nil, fmt.Errorf("open transport: %w", err)
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			c.log.WarnObj("transport close failed", "error", cerr.Error())
		}
	}()

	res = handle.Execute(ctx, s)
	if res == nil {
		return nil, fmt.Errorf("transport returned no result")
	}
	return res, nil
}

func (c *Client) buildSettings(method, url string, payload Payload) (*Settings, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	data := encodePayload(payload)

	s := c.defaults.settings()
	s.Method = method
	s.URL = url

	switch method {
	case http.MethodHead:
		s.NoBody = true
	case http.MethodGet:
		s.URL = appendQuery(url, data)
	default:
		s.Body = data
	}

	s.Headers = headerLines(c.Headers)
	if err := applyOptions(s, c.Options); err != nil {
		return nil, err
	}
	return s, nil
}

// headerLines renders the header map as sorted "Name: Value" lines.
func headerLines(headers map[string]string) []string {
	if len(headers) == 0 {
		return nil
	}
	out := make([]string, 0, len(headers))
	for k, v := range headers {
		out = append(out, k+": "+v)
	}
	sort.Strings(out)
	return out
}
