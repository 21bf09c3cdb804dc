package httpresponse

import (
	"regexp"
	"strconv"
	"strings"
)

// Meta carries transport-reported facts about a raw response.
type Meta struct {
	// HeaderSize is the byte length of every header block received,
	// redirect hops included. Zero means unknown.
	HeaderSize int
}

// headerBlockRe matches one header block anchored at the start of its input:
// a status line beginning with an HTTP version token, any number of lines,
// and the blank line that terminates the block.
var headerBlockRe = regexp.MustCompile(`(?is)\AHTTP/\S*.*?(?:\r\n\r\n|\n\n|\r\r)`)

// Parse splits a raw, header-inclusive response into a Response.
//
// When meta reports a header size the response is sliced at that offset.
// Otherwise the header blocks are located by pattern; blocks of a redirect
// chain are contiguous from the start of raw and the last one wins. Either
// way only the last header block contributes headers.
func Parse(raw []byte, meta *Meta) (*Response, error) {
	var block, body string
	if meta != nil && meta.HeaderSize > 0 {
		if meta.HeaderSize > len(raw) {
			return nil, parseErr("header size "+strconv.Itoa(meta.HeaderSize)+" exceeds response length "+strconv.Itoa(len(raw)), "")
		}
		block = string(raw[:meta.HeaderSize])
		body = string(raw[meta.HeaderSize:])
	} else {
		start, end, ok := locateHeaderBlock(raw)
		if !ok {
			return nil, parseErr("no header block found", firstLine(string(raw)))
		}
		block = string(raw[start:end])
		body = string(raw[end:])
	}

	headers, err := parseHeaderBlock(lastBlock(block))
	if err != nil {
		return nil, err
	}
	return &Response{Body: body, Headers: headers}, nil
}

// locateHeaderBlock returns the bounds of the last header block in the
// contiguous chain that opens raw.
func locateHeaderBlock(raw []byte) (int, int, bool) {
	start, end, pos := 0, 0, 0
	found := false
	for pos < len(raw) {
		loc := headerBlockRe.FindIndex(raw[pos:])
		if loc == nil {
			break
		}
		start, end = pos, pos+loc[1]
		pos = end
		found = true
	}
	return start, end, found
}

// normalizeNewlines rewrites CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// lastBlock keeps the final non-empty block of possibly concatenated header blocks.
func lastBlock(s string) string {
	blocks := strings.Split(normalizeNewlines(s), "\n\n")
	for i := len(blocks) - 1; i >= 0; i-- {
		if strings.TrimSpace(blocks[i]) != "" {
			return blocks[i]
		}
	}
	return ""
}

func parseHeaderBlock(block string) (*Header, error) {
	lines := strings.Split(block, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, parseErr("empty header block", "")
	}

	version, code, reason, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}

	h := NewHeader()
	h.Set(KeyHTTPVersion, version)
	h.Set(KeyStatusCode, code)
	if reason == "" {
		h.Set(KeyStatus, code)
	} else {
		h.Set(KeyStatus, code+" "+reason)
	}

	prev := ""
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if prev == "" {
				return nil, parseErr("continuation line without header", line)
			}
			h.Set(prev, strings.TrimSpace(h.Get(prev)+" "+strings.TrimSpace(line)))
			continue
		}

		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, parseErr("malformed header line", line)
		}
		h.Set(name, value)
		prev = name
	}
	return h, nil
}

func splitHeaderLine(line string) (string, string, bool) {
	if i := strings.Index(line, ": "); i > 0 {
		return line[:i], strings.TrimSpace(line[i+2:]), true
	}
	trimmed := strings.TrimRight(line, " \t")
	if len(trimmed) > 1 && strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed[:len(trimmed)-1], ":") {
		return trimmed[:len(trimmed)-1], "", true
	}
	return "", "", false
}

// parseStatusLine splits "HTTP/<version> <code> <reason>" into at most three tokens.
func parseStatusLine(line string) (version, code, reason string, err error) {
	rest := strings.TrimSpace(line)
	version, rest, _ = strings.Cut(rest, " ")
	rest = strings.TrimLeft(rest, " ")
	code, reason, _ = strings.Cut(rest, " ")
	reason = strings.TrimSpace(reason)

	if len(version) < 6 || !strings.EqualFold(version[:5], "HTTP/") {
		return "", "", "", parseErr("status line has no HTTP version", line)
	}
	if code == "" {
		return "", "", "", parseErr("status line has no status code", line)
	}
	if _, convErr := strconv.ParseUint(code, 10, 16); convErr != nil {
		return "", "", "", parseErr("status code is not numeric", line)
	}
	return version[5:], code, reason, nil
}

func firstLine(s string) string {
	s = normalizeNewlines(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
