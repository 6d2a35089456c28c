// Package enrich fills gaps in resolved metadata from the source page itself.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/guiyumin/mediahub/internal/core/httpclient"
	"github.com/guiyumin/mediahub/internal/core/media"
)

// PageMeta is what a page says about itself.
type PageMeta struct {
	Title string
	Image string
}

// OpenGraph reads og:title and og:image from a page.
type OpenGraph struct {
	client  *http.Client
	timeout time.Duration
}

func NewOpenGraph(client *http.Client) *OpenGraph {
	return &OpenGraph{client: client, timeout: 5 * time.Second}
}

// Fetch downloads the page and parses its OpenGraph tags.
func (o *OpenGraph) Fetch(ctx context.Context, pageURL string) (PageMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return PageMeta{}, err
	}
	req.Header.Set("User-Agent", httpclient.DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := o.client.Do(req)
	if err != nil {
		return PageMeta{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PageMeta{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	return Parse(io.LimitReader(resp.Body, httpclient.MaxBodyBytes), resp.Request.URL)
}

// Parse extracts OpenGraph metadata from HTML. Relative image URLs are
// resolved against base.
func Parse(r io.Reader, base *url.URL) (PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PageMeta{}, fmt.Errorf("parsing html: %w", err)
	}

	meta := PageMeta{
		Title: metaContent(doc, "og:title", "twitter:title"),
		Image: metaContent(doc, "og:image", "og:image:url", "twitter:image"),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if meta.Image != "" && base != nil {
		if ref, err := url.Parse(meta.Image); err == nil {
			meta.Image = base.ResolveReference(ref).String()
		}
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		sel := fmt.Sprintf("meta[property='%s'], meta[name='%s']", key, key)
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// NeedsEnrichment reports whether info is missing a title or thumbnail.
func NeedsEnrichment(info *media.MediaInfo) bool {
	return info.Title == "" || info.Title == media.DefaultTitle || info.Thumbnail == ""
}

// Apply copies page metadata into the fields info is missing.
func Apply(info *media.MediaInfo, meta PageMeta) {
	if (info.Title == "" || info.Title == media.DefaultTitle) && meta.Title != "" {
		info.Title = meta.Title
	}
	if info.Thumbnail == "" && meta.Image != "" {
		info.Thumbnail = meta.Image
	}
}
