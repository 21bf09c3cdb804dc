package httpresponse

// Synthesized header keys derived from the status line.
const (
	KeyHTTPVersion = "Http-Version"
	KeyStatusCode  = "Status-Code"
	KeyStatus      = "Status"
)

// Header is an insertion-ordered mapping of header names to values.
// Names are case-sensitive as received. Setting an existing name replaces
// its value in place.
type Header struct {
	keys   []string
	values map[string]string
}

// NewHeader returns an empty header mapping.
func NewHeader() *Header {
	return &Header{values: make(map[string]string)}
}

// Set stores value under name, overwriting any previous value.
func (h *Header) Set(name, value string) {
	if _, ok := h.values[name]; !ok {
		h.keys = append(h.keys, name)
	}
	h.values[name] = value
}

// Get returns the value for name, or "" when absent.
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	return h.values[name]
}

// Lookup returns the value for name and whether it was present.
func (h *Header) Lookup(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h.values[name]
	return v, ok
}

// Keys returns the header names in insertion order.
func (h *Header) Keys() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// Map returns a copy of the headers as a plain map.
func (h *Header) Map() map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}
