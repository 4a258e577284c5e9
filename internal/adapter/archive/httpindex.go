package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"golang.org/x/net/html"
)

// HTTPIndex is an archive published as auto-generated directory index pages.
type HTTPIndex struct {
	root       string
	httpClient *http.Client
}

// NewHTTPIndex creates a source for the index rooted at root. A nil client
// gets a default with a five minute timeout, long enough for a full volume.
func NewHTTPIndex(root string, client *http.Client) *HTTPIndex {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPIndex{root: strings.TrimRight(root, "/"), httpClient: client}
}

// List parses the bucket's index page and returns every file link below it.
// Parent, sort and subdirectory links are ignored.
func (h *HTTPIndex) List(ctx context.Context, b catalog.Bucket) ([]catalog.Listing, error) {
	base, err := url.Parse(h.root + "/" + b.Path() + "/")
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}

	doc, err := h.getAndParse(ctx, base.String())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []catalog.Listing
	walkNodeTree(doc, func(node *html.Node) {
		if node.Type != html.ElementNode || node.Data != "a" {
			return
		}
		href := attr(node, "href")
		if href == "" || strings.HasSuffix(href, "/") || strings.HasPrefix(href, "?") {
			return
		}
		ref, err := base.Parse(href)
		if err != nil || !strings.HasPrefix(ref.Path, base.Path) {
			return
		}
		name := path.Base(ref.Path)
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, catalog.Listing{Name: name, Ref: ref.String()})
	})
	return out, nil
}

// Fetch downloads ref into dir.
func (h *HTTPIndex) Fetch(ctx context.Context, ref, dir string) (string, error) {
	resp, err := h.get(ctx, ref)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	return save(dir, path.Base(u.Path), resp.Body)
}

func (h *HTTPIndex) getAndParse(ctx context.Context, u string) (*html.Node, error) {
	resp, err := h.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index %s: %w", u, err)
	}
	return doc, nil
}

func (h *HTTPIndex) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: status %d: %s", u, resp.StatusCode, body)
	}
	return resp, nil
}

// walkNodeTree visits root and its descendants depth first.
func walkNodeTree(root *html.Node, fn func(*html.Node)) {
	fn(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walkNodeTree(c, fn)
	}
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
