package httpclient

import (
	"io"
	"time"
)

const (
	// DefaultUserAgent is sent when the client was built without one.
	DefaultUserAgent = "dakiya/1.0"
	// DefaultTimeout bounds the whole transfer.
	DefaultTimeout = 30 * time.Second
	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultMaxRedirects caps redirect following.
	DefaultMaxRedirects = 10
)

// Settings is the full transport configuration for one call.
type Settings struct {
	URL    string
	Method string
	// NoBody suppresses response body retrieval.
	NoBody bool
	Body   string
	// Headers are "Name: Value" lines.
	Headers []string

	IncludeHeaders bool
	ReturnTransfer bool
	// Output receives the response when ReturnTransfer is false.
	Output io.Writer

	UserAgent       string
	FollowRedirects bool
	MaxRedirects    int
	VerifyPeer      bool
	VerifyHost      bool
	ConnectTimeout  time.Duration
	Timeout         time.Duration

	Proxy     string
	Referer   string
	Encoding  string
	Cookie    string
	BasicAuth string
}

// Defaults are the client-wide values every call starts from.
type Defaults struct {
	UserAgent       string
	FollowRedirects bool
	MaxRedirects    int
	VerifyTLS       bool
	ConnectTimeout  time.Duration
	Timeout         time.Duration
}

// DefaultDefaults returns the stock client defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		UserAgent:       DefaultUserAgent,
		FollowRedirects: true,
		MaxRedirects:    DefaultMaxRedirects,
		VerifyTLS:       true,
		ConnectTimeout:  DefaultConnectTimeout,
		Timeout:         DefaultTimeout,
	}
}

func (d Defaults) settings() *Settings {
	ua := d.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Settings{
		IncludeHeaders:  true,
		ReturnTransfer:  true,
		UserAgent:       ua,
		FollowRedirects: d.FollowRedirects,
		MaxRedirects:    d.MaxRedirects,
		VerifyPeer:      d.VerifyTLS,
		VerifyHost:      d.VerifyTLS,
		ConnectTimeout:  d.ConnectTimeout,
		Timeout:         d.Timeout,
	}
}
