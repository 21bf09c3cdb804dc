package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxMetaBytes bounds how much of a page is parsed for head metadata.
const maxMetaBytes = 1 << 20 // 1 MiB

// Meta is the page metadata advertised through OG and standard meta tags.
type Meta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Select returns the trimmed text of every node matching selector. A trailing
// "@name" selects that attribute instead of the text, e.g. "a@href".
func Select(body, selector string) ([]string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("empty selector")
	}

	attr := ""
	if i := strings.LastIndex(selector, "@"); i > 0 && !strings.ContainsAny(selector[i:], "]) ") {
		selector, attr = selector[:i], selector[i+1:]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		var val string
		if attr != "" {
			v, ok := s.Attr(attr)
			if !ok {
				return
			}
			val = v
		} else {
			val = s.Text()
		}
		if val = strings.TrimSpace(val); val != "" {
			out = append(out, val)
		}
	})
	return out, nil
}

// PageMeta extracts title, description and image from the page head.
// Relative image URLs are resolved against pageURL when it is set.
func PageMeta(body, pageURL string) (Meta, error) {
	if len(body) > maxMetaBytes {
		body = body[:maxMetaBytes]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Meta{}, fmt.Errorf("parse html: %w", err)
	}

	content := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return Meta{
		Title: firstNonEmpty(
			content(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			content(`meta[property="og:description"]`),
			content(`meta[name="description"]`),
		),
		ImageURL: resolveURL(content(`meta[property="og:image"]`), pageURL),
	}, nil
}

func resolveURL(ref, base string) string {
	if ref == "" || base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
