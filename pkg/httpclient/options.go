package httpclient

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Option names a transport setting a caller may override.
type Option int

const (
	OptionUserAgent Option = iota + 1
	OptionFollowRedirects
	OptionMaxRedirects
	OptionVerifyPeer
	OptionVerifyHost
	OptionConnectTimeout
	OptionTimeout
	OptionIncludeHeaders
	OptionReturnTransfer
	OptionNoBody
	OptionProxy
	OptionReferer
	OptionEncoding
	OptionCookie
	OptionBasicAuth
)

type optionKind int

const (
	kindBool optionKind = iota
	kindInt
	kindDuration
	kindString
)

type optionSpec struct {
	name    string
	aliases []string
	kind    optionKind
	apply   func(s *Settings, v any)
}

var optionSpecs = map[Option]optionSpec{
	OptionUserAgent: {"user_agent", []string{"useragent"}, kindString,
		func(s *Settings, v any) { s.UserAgent = v.(string) }},
	OptionFollowRedirects: {"follow_location", []string{"followlocation", "follow_redirects"}, kindBool,
		func(s *Settings, v any) { s.FollowRedirects = v.(bool) }},
	OptionMaxRedirects: {"max_redirs", []string{"maxredirs", "max_redirects"}, kindInt,
		func(s *Settings, v any) { s.MaxRedirects = v.(int) }},
	OptionVerifyPeer: {"ssl_verify_peer", []string{"ssl_verifypeer", "verify_peer"}, kindBool,
		func(s *Settings, v any) { s.VerifyPeer = v.(bool) }},
	OptionVerifyHost: {"ssl_verify_host", []string{"ssl_verifyhost", "verify_host"}, kindBool,
		func(s *Settings, v any) { s.VerifyHost = v.(bool) }},
	OptionConnectTimeout: {"connect_timeout", []string{"connecttimeout"}, kindDuration,
		func(s *Settings, v any) { s.ConnectTimeout = v.(time.Duration) }},
	OptionTimeout: {"timeout", nil, kindDuration,
		func(s *Settings, v any) { s.Timeout = v.(time.Duration) }},
	OptionIncludeHeaders: {"header", []string{"include_headers"}, kindBool,
		func(s *Settings, v any) { s.IncludeHeaders = v.(bool) }},
	OptionReturnTransfer: {"return_transfer", []string{"returntransfer"}, kindBool,
		func(s *Settings, v any) { s.ReturnTransfer = v.(bool) }},
	OptionNoBody: {"no_body", []string{"nobody"}, kindBool,
		func(s *Settings, v any) { s.NoBody = v.(bool) }},
	OptionProxy: {"proxy", nil, kindString,
		func(s *Settings, v any) { s.Proxy = v.(string) }},
	OptionReferer: {"referer", nil, kindString,
		func(s *Settings, v any) { s.Referer = v.(string) }},
	OptionEncoding: {"encoding", []string{"accept_encoding"}, kindString,
		func(s *Settings, v any) { s.Encoding = v.(string) }},
	OptionCookie: {"cookie", nil, kindString,
		func(s *Settings, v any) { s.Cookie = v.(string) }},
	OptionBasicAuth: {"userpwd", []string{"basic_auth"}, kindString,
		func(s *Settings, v any) { s.BasicAuth = v.(string) }},
}

var optionsByName = buildOptionIndex()

func buildOptionIndex() map[string]Option {
	idx := make(map[string]Option, len(optionSpecs)*3)
	for opt, spec := range optionSpecs {
		idx[normalizeOptionName(spec.name)] = opt
		for _, a := range spec.aliases {
			idx[normalizeOptionName(a)] = opt
		}
	}
	return idx
}

// normalizeOptionName folds case, drops a CURLOPT_ prefix and separators.
func normalizeOptionName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "curlopt_")
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

// ParseOption resolves a generic option name such as "follow_location",
// "CURLOPT_FOLLOWLOCATION" or "followlocation".
func ParseOption(name string) (Option, error) {
	if opt, ok := optionsByName[normalizeOptionName(name)]; ok {
		return opt, nil
	}
	return 0, fmt.Errorf("unknown transport option %q", name)
}

func (o Option) String() string {
	if spec, ok := optionSpecs[o]; ok {
		return spec.name
	}
	return "option(" + strconv.Itoa(int(o)) + ")"
}

// Normalize converts v to the value type o expects.
// Booleans accept bool, 0/1 and strconv.ParseBool strings. Durations accept
// time.Duration, whole seconds as int, or strings such as "30s" or "30".
func (o Option) Normalize(v any) (any, error) {
	spec, ok := optionSpecs[o]
	if !ok {
		return nil, fmt.Errorf("unknown transport option %d", int(o))
	}

	var (
		out any
		err error
	)
	switch spec.kind {
	case kindBool:
		out, err = toBool(v)
	case kindInt:
		out, err = toInt(v)
	case kindDuration:
		out, err = toDuration(v)
	case kindString:
		out, err = toString(v)
	}
	if err != nil {
		return nil, fmt.Errorf("option %s: %w", spec.name, err)
	}
	return out, nil
}

// Apply validates v and stores it into s.
func (o Option) Apply(s *Settings, v any) error {
	norm, err := o.Normalize(v)
	if err != nil {
		return err
	}
	optionSpecs[o].apply(s, norm)
	return nil
}

// applyOptions applies overrides in a stable order.
func applyOptions(s *Settings, opts map[Option]any) error {
	keys := make([]Option, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		if err := k.Apply(s, opts[k]); err != nil {
			return err
		}
	}
	return nil
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", t)
		}
		return b, nil
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func toDuration(v any) (time.Duration, error) {
	var d time.Duration
	switch t := v.(type) {
	case time.Duration:
		d = t
	case int:
		d = time.Duration(t) * time.Second
	case int64:
		d = time.Duration(t) * time.Second
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			d = time.Duration(n) * time.Second
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", t)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}
