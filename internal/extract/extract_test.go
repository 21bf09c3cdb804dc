package extract

import "testing"

const page = `
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:title" content="OG Title">
    <meta name="description" content="Plain Desc">
    <meta property="og:image" content="/img/og.png">
  </head>
  <body>
    <ul>
      <li><a href="/one">One</a></li>
      <li><a href="/two"> Two </a></li>
      <li><a>  </a></li>
    </ul>
  </body>
</html>`

func TestPageMetaPrefersOGTags(t *testing.T) {
	meta, err := PageMeta(page, "https://example.com/articles/1")
	if err != nil {
		t.Fatalf("PageMeta: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "Plain Desc" {
		t.Fatalf("unexpected meta %#v", meta)
	}
	if meta.ImageURL != "https://example.com/img/og.png" {
		t.Fatalf("image should resolve against page url, got %q", meta.ImageURL)
	}

	meta, err = PageMeta("<html><head><title> Only </title></head></html>", "")
	if err != nil {
		t.Fatalf("PageMeta: %v", err)
	}
	if meta.Title != "Only" || meta.ImageURL != "" {
		t.Fatalf("unexpected fallback meta %#v", meta)
	}
}

func TestSelectTextAndAttributes(t *testing.T) {
	text, err := Select(page, "li a")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(text) != 2 || text[0] != "One" || text[1] != "Two" {
		t.Fatalf("unexpected text %q", text)
	}

	hrefs, err := Select(page, "li a@href")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(hrefs) != 2 || hrefs[1] != "/two" {
		t.Fatalf("unexpected hrefs %q", hrefs)
	}

	if _, err := Select(page, "  "); err == nil {
		t.Fatalf("expected error for empty selector")
	}
}

func TestResolveURL(t *testing.T) {
	if got := resolveURL("/img.png", "https://example.com/articles/1"); got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}
	if got := resolveURL("https://cdn.example/x.png", "https://example.com"); got != "https://cdn.example/x.png" {
		t.Fatalf("absolute url should pass through, got %q", got)
	}
	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
