package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Adda-Baaj/dakiya/internal/config"
	"github.com/Adda-Baaj/dakiya/internal/domain"
	"github.com/Adda-Baaj/dakiya/internal/logger"
	"github.com/Adda-Baaj/dakiya/internal/storage"
	"github.com/Adda-Baaj/dakiya/pkg/httpclient"
	"github.com/Adda-Baaj/dakiya/pkg/httpresponse"
	"github.com/Adda-Baaj/dakiya/pkg/profiles"
	"github.com/Adda-Baaj/dakiya/pkg/publishers"
	"github.com/google/uuid"
)

// Session is the runtime behind the CLI. It owns the client defaults, the
// profile registry, the exchange history and the sink fanout, and records
// every call it dispatches.
type Session struct {
	cfg       *config.Config
	defaults  httpclient.Defaults
	profiles  *profiles.Registry
	fanout    *publishers.Fanout
	store     storage.Store
	transport httpclient.Transport
	log       logger.Logger
}

// Call describes one request issued through a Session.
type Call struct {
	Method  string
	URL     string
	Profile string
	Payload httpclient.Payload
	Headers map[string]string
	// Options are generic option names mapped to their raw values.
	Options map[string]string
}

// SessionOption overrides a collaborator built from config.
type SessionOption func(*Session)

// WithTransport replaces the resty transport used by every call.
func WithTransport(t httpclient.Transport) SessionOption {
	return func(s *Session) { s.transport = t }
}

// WithPublishers replaces the sinks loaded from the sinks file.
func WithPublishers(pubs ...publishers.Publisher) SessionOption {
	return func(s *Session) { s.fanout = publishers.NewFanout(pubs) }
}

// NewSession builds a session from config. Profiles and sinks are optional
// and only loaded when their files are configured.
func NewSession(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Session{
		cfg:      cfg,
		defaults: clientDefaults(cfg),
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}

	if strings.TrimSpace(cfg.ProfilesFile) != "" {
		reg, err := profiles.LoadRegistry(cfg.ProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("load profiles registry: %w", err)
		}
		s.profiles = reg
		log.DebugObj("profiles registry loaded", "profiles_meta", map[string]any{
			"count": len(reg.All()),
		})
	}

	if s.fanout == nil {
		fanout, err := buildFanout(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		s.fanout = fanout
	}

	store, err := storage.NewStore(cfg.HistoryType, cfg.BBoltPath, storage.Options{
		TTL:             cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	if err != nil {
		s.fanout.Close()
		return nil, fmt.Errorf("init history: %w", err)
	}
	s.store = store
	log.DebugObj("history initialized", "history_config", map[string]any{
		"type":                     cfg.HistoryType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	return s, nil
}

func clientDefaults(cfg *config.Config) httpclient.Defaults {
	d := httpclient.DefaultDefaults()
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		d.UserAgent = ua
	}
	d.FollowRedirects = cfg.FollowRedirects
	if cfg.MaxRedirects > 0 {
		d.MaxRedirects = cfg.MaxRedirects
	}
	d.VerifyTLS = cfg.VerifyTLS
	if cfg.ConnectTimeout > 0 {
		d.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return d
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.SinksFile) == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.DebugObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Do dispatches one call, records the exchange and publishes it to the sinks.
// The returned error is the call's own error; history and sink failures are
// only logged.
func (s *Session) Do(ctx context.Context, call Call) (*httpresponse.Response, error) {
	if s == nil {
		return nil, fmt.Errorf("session is not initialized")
	}

	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}

	client, target, err := s.prepare(call)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Request(ctx, method, target, call.Payload)

	ex := domain.Exchange{
		ID:        uuid.NewString(),
		Profile:   call.Profile,
		Method:    method,
		URL:       target,
		StartedAt: start.UTC(),
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	fillExchange(&ex, resp, err)
	s.record(ctx, ex)

	return resp, err
}

// prepare builds a fresh client for the call with profile defaults applied
// first and call-level headers and options layered on top.
func (s *Session) prepare(call Call) (*httpclient.Client, string, error) {
	opts := []httpclient.ClientOption{
		httpclient.WithDefaults(s.defaults),
		httpclient.WithLogger(s.log),
	}
	if s.transport != nil {
		opts = append(opts, httpclient.WithTransport(s.transport))
	}
	client := httpclient.New(opts...)

	target, err := s.Target(call)
	if err != nil {
		return nil, "", err
	}
	if p, ok := s.profiles.ByID(call.Profile); ok {
		for k, v := range p.Headers {
			client.Headers[k] = v
		}
		if p.TimeoutSeconds > 0 {
			client.Options[httpclient.OptionTimeout] = p.Timeout()
		}
		for _, name := range p.OptionNames() {
			if err := client.SetOption(name, p.Options[name]); err != nil {
				return nil, "", fmt.Errorf("profile %q: %w", p.ID, err)
			}
		}
	}

	for k, v := range call.Headers {
		client.Headers[k] = v
	}
	for name, value := range call.Options {
		if err := client.SetOption(name, value); err != nil {
			return nil, "", err
		}
	}
	return client, target, nil
}

// Target returns the URL a call is sent to once its profile base URL is applied.
func (s *Session) Target(call Call) (string, error) {
	target := strings.TrimSpace(call.URL)
	if call.Profile != "" {
		p, ok := s.profiles.ByID(call.Profile)
		if !ok {
			return "", fmt.Errorf("unknown profile %q", call.Profile)
		}
		resolved, err := p.Resolve(target)
		if err != nil {
			return "", err
		}
		target = resolved
	}
	if target == "" {
		return "", fmt.Errorf("url is required")
	}
	return target, nil
}

func fillExchange(ex *domain.Exchange, resp *httpresponse.Response, err error) {
	if err != nil {
		ex.Error = err.Error()
		var terr *httpclient.TransportError
		if errors.As(err, &terr) {
			ex.ErrorCode = int(terr.Code)
		}
		return
	}
	if resp == nil {
		return
	}

	ex.StatusCode = resp.StatusCode()
	ex.Status = resp.Status()
	ex.HTTPVersion = resp.HTTPVersion()
	ex.BodyBytes = len(resp.Body)
	if resp.Headers != nil && resp.Headers.Len() > 0 {
		ex.Headers = make(map[string]string, resp.Headers.Len())
		for _, k := range resp.Headers.Keys() {
			switch k {
			case httpresponse.KeyHTTPVersion, httpresponse.KeyStatusCode, httpresponse.KeyStatus:
				continue
			}
			ex.Headers[k] = resp.Headers.Get(k)
		}
	}
}

func (s *Session) record(ctx context.Context, ex domain.Exchange) {
	if err := s.store.Record(ex); err != nil {
		s.log.WarnObj("history record failed", "history_error", map[string]any{
			"exchange_id": ex.ID,
			"error":       err.Error(),
		})
	}

	if s.fanout.Size() == 0 {
		return
	}
	delivered, err := s.fanout.Publish(ctx, publishers.NewEvent(s.cfg.AppName, ex))
	if err != nil {
		s.log.WarnObj("sink publish failed", "sink_error", map[string]any{
			"exchange_id": ex.ID,
			"delivered":   delivered,
			"error":       err.Error(),
		})
	}
}

// History returns up to limit recorded exchanges, newest first.
func (s *Session) History(limit int) ([]domain.Exchange, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("session is not initialized")
	}
	return s.store.Recent(limit)
}

// Close releases the history store and sink clients.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if err := s.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	return errors.Join(errs...)
}
