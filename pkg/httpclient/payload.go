package httpclient

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Payload is request data that encodes itself as a query string or form body.
// url.Values satisfies it as well.
type Payload interface {
	Encode() string
}

// Raw is an already-encoded payload passed through unchanged.
type Raw string

func (r Raw) Encode() string { return string(r) }

// Form is a key/value payload that is form-encoded with keys in sorted order.
// Nil values are skipped, booleans encode as 1/0 and slices repeat the key.
type Form map[string]any

func (f Form) Encode() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range formValues(f[k]) {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func formValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		if t {
			return []string{"1"}
		}
		return []string{"0"}
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, formValues(item)...)
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func encodePayload(p Payload) string {
	if p == nil {
		return ""
	}
	return p.Encode()
}

// appendQuery appends an encoded query to rawURL with '?' or '&'.
func appendQuery(rawURL, query string) string {
	if query == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
