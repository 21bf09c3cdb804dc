package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var errTooManyRedirects = errors.New("too many redirects")

// RestyTransport executes calls with a fresh resty.Client per handle.
type RestyTransport struct{}

// NewRestyTransport returns the default transport.
func NewRestyTransport() *RestyTransport { return &RestyTransport{} }

// Open allocates a handle. The handle builds its client when executed.
func (t *RestyTransport) Open() (Handle, error) {
	return &restyHandle{}, nil
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

type restyHandle struct {
	client *resty.Client
	closed bool
}

// Close releases idle connections held by the handle's client.
func (h *restyHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.client != nil {
		h.client.GetClient().CloseIdleConnections()
	}
	return nil
}

func (h *restyHandle) Execute(ctx context.Context, s *Settings) *Result {
	if h.closed {
		return &Result{ErrCode: CodeRecvError, ErrMessage: "handle already closed"}
	}
	if s == nil {
		return &Result{ErrCode: CodeURLMalformed, ErrMessage: CodeURLMalformed.Description()}
	}

	httpTransport, err := buildHTTPTransport(s)
	if err != nil {
		code, msg := classifyError(err)
		return &Result{ErrCode: code, ErrMessage: msg}
	}

	var hops []*http.Response
	h.client = resty.New().
		SetTransport(httpTransport).
		SetTimeout(s.Timeout).
		SetDisableWarn(true).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			if !s.FollowRedirects {
				return http.ErrUseLastResponse
			}
			if s.MaxRedirects >= 0 && len(via) > s.MaxRedirects {
				return errTooManyRedirects
			}
			if req.Response != nil {
				hops = append(hops, req.Response)
			}
			return nil
		}))

	method := s.Method
	if s.NoBody && (method == http.MethodGet || method == "") {
		method = http.MethodHead
	}

	req := h.client.R().SetContext(ctx)
	applyRequestHeaders(req, s)
	if s.Body != "" && method != http.MethodGet && method != http.MethodHead {
		req.SetBody(s.Body)
		if req.Header.Get("Content-Type") == "" {
			req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		}
		// resty drops payloads for some verbs (OPTIONS); attach it to the raw request.
		h.client.SetPreRequestHook(func(_ *resty.Client, r *http.Request) error {
			attachBody(r, s.Body)
			return nil
		})
	}

	start := time.Now()
	resp, err := req.Execute(method, s.URL)
	elapsed := time.Since(start)
	if err != nil {
		code, msg := classifyError(err)
		return &Result{ErrCode: code, ErrMessage: msg, TotalTime: elapsed}
	}

	var raw bytes.Buffer
	if s.IncludeHeaders {
		for _, hop := range hops {
			writeHeaderBlock(&raw, hop)
		}
		writeHeaderBlock(&raw, resp.RawResponse)
	}
	headerSize := raw.Len()
	if !s.NoBody {
		raw.Write(resp.Body())
	}

	res := &Result{
		HeaderSize: headerSize,
		StatusCode: resp.StatusCode(),
		TotalTime:  elapsed,
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		res.EffectiveURL = resp.RawResponse.Request.URL.String()
	}

	if !s.ReturnTransfer {
		out := s.Output
		if out == nil {
			out = os.Stdout
		}
		if _, err := out.Write(raw.Bytes()); err != nil {
			res.ErrCode = CodeRecvError
			res.ErrMessage = CodeRecvError.Description() + ": " + err.Error()
		}
		return res
	}

	res.Raw = raw.Bytes()
	return res
}

// attachBody sets body on r unless resty already did.
func attachBody(r *http.Request, body string) {
	if r.ContentLength > 0 || (r.Body != nil && r.Body != http.NoBody) {
		return
	}
	r.Body = io.NopCloser(strings.NewReader(body))
	r.ContentLength = int64(len(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
}

func buildHTTPTransport(s *Settings) (*http.Transport, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{
		Timeout:   s.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	tr.TLSHandshakeTimeout = s.ConnectTimeout
	tr.TLSClientConfig = tlsConfig(s.VerifyPeer, s.VerifyHost)

	if s.Proxy != "" {
		proxyURL, err := neturl.Parse(s.Proxy)
		if err != nil {
			return nil, &neturl.Error{Op: "parse", URL: s.Proxy, Err: err}
		}
		tr.Proxy = http.ProxyURL(proxyURL)
	}
	return tr, nil
}

// tlsConfig maps the two verification switches onto crypto/tls. Verifying the
// peer without the host checks the chain but not the certificate name.
func tlsConfig(verifyPeer, verifyHost bool) *tls.Config {
	switch {
	case !verifyPeer:
		return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // caller disabled verification
	case !verifyHost:
		return &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // chain verified in VerifyConnection
			VerifyConnection: func(cs tls.ConnectionState) error {
				if len(cs.PeerCertificates) == 0 {
					return errors.New("no peer certificates")
				}
				opts := x509.VerifyOptions{Intermediates: x509.NewCertPool()}
				for _, cert := range cs.PeerCertificates[1:] {
					opts.Intermediates.AddCert(cert)
				}
				_, err := cs.PeerCertificates[0].Verify(opts)
				return err
			},
		}
	default:
		return &tls.Config{}
	}
}

func applyRequestHeaders(req *resty.Request, s *Settings) {
	if s.UserAgent != "" {
		req.SetHeader("User-Agent", s.UserAgent)
	}
	if s.Referer != "" {
		req.SetHeader("Referer", s.Referer)
	}
	if s.Encoding != "" {
		req.SetHeader("Accept-Encoding", s.Encoding)
	}
	if s.Cookie != "" {
		req.SetHeader("Cookie", s.Cookie)
	}
	if s.BasicAuth != "" {
		user, pass, _ := strings.Cut(s.BasicAuth, ":")
		req.SetBasicAuth(user, pass)
	}
	for _, line := range s.Headers {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		req.SetHeader(name, strings.TrimSpace(value))
	}
}

// writeHeaderBlock renders a status line and headers terminated by a blank line.
func writeHeaderBlock(w io.Writer, resp *http.Response) {
	if resp == nil {
		return
	}
	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	fmt.Fprintf(w, "%s %s\r\n", proto, strings.TrimSpace(status))

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "%s: %s\r\n", k, v)
		}
	}
	io.WriteString(w, "\r\n")
}

// classifyError maps a Go transport error onto an ErrorCode and message.
func classifyError(err error) (ErrorCode, string) {
	var (
		dnsErr     *net.DNSError
		certErr    *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		recordErr  tls.RecordHeaderError
		opErr      *net.OpError
		urlErr     *neturl.Error
		netErr     net.Error
	)

	switch {
	case errors.Is(err, errTooManyRedirects):
		return withDetail(CodeTooManyRedirects, "")
	case errors.As(err, &dnsErr):
		return withDetail(CodeCouldntResolveHost, dnsErr.Name)
	case errors.As(err, &certErr), errors.As(err, &unknownCA), errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return withDetail(CodePeerFailedVerification, rootMessage(err))
	case errors.Is(err, context.Canceled):
		return withDetail(CodeAbortedByCallback, "")
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return withDetail(CodeOperationTimedOut, rootMessage(err))
	case errors.As(err, &recordErr):
		return withDetail(CodeSSLConnectError, rootMessage(err))
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return withDetail(CodeCouldntConnect, rootMessage(err))
	case errors.As(err, &urlErr) && urlErr.Op == "parse":
		return withDetail(CodeURLMalformed, rootMessage(err))
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return withDetail(CodeUnsupportedProtocol, rootMessage(err))
	}
	return withDetail(CodeRecvError, rootMessage(err))
}

func withDetail(code ErrorCode, detail string) (ErrorCode, string) {
	if detail == "" {
		return code, code.Description()
	}
	return code, code.Description() + ": " + detail
}

// rootMessage returns the innermost error text.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
