package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head>
<title>Fallback title</title>
<meta property="og:title" content=" Sunset over the bay ">
<meta property="og:image" content="/images/sunset.jpg">
</head><body><h1>ignored</h1></body></html>`

func TestParse(t *testing.T) {
	base, _ := url.Parse("https://www.instagram.com/reel/abc/")
	meta, err := Parse(strings.NewReader(page), base)
	require.NoError(t, err)

	assert.Equal(t, "Sunset over the bay", meta.Title)
	assert.Equal(t, "https://www.instagram.com/images/sunset.jpg", meta.Image)
}

func TestParse_TitleFallbackAndTwitterTags(t *testing.T) {
	html := `<html><head><title> Plain </title><meta name="twitter:image" content="https://cdn/x.jpg"></head></html>`
	meta, err := Parse(strings.NewReader(html), nil)
	require.NoError(t, err)

	assert.Equal(t, "Plain", meta.Title)
	assert.Equal(t, "https://cdn/x.jpg", meta.Image)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	og := NewOpenGraph(srv.Client())

	meta, err := og.Fetch(context.Background(), srv.URL+"/video/1")
	require.NoError(t, err)
	assert.Equal(t, "Sunset over the bay", meta.Title)
	assert.Equal(t, srv.URL+"/images/sunset.jpg", meta.Image)

	_, err = og.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	info := &media.MediaInfo{Title: media.DefaultTitle}
	assert.True(t, NeedsEnrichment(info))

	Apply(info, PageMeta{Title: "Real title", Image: "https://cdn/t.jpg"})
	assert.Equal(t, "Real title", info.Title)
	assert.Equal(t, "https://cdn/t.jpg", info.Thumbnail)
	assert.False(t, NeedsEnrichment(info))

	kept := &media.MediaInfo{Title: "Provider title", Thumbnail: "https://cdn/p.jpg"}
	Apply(kept, PageMeta{Title: "Page", Image: "https://cdn/page.jpg"})
	assert.Equal(t, "Provider title", kept.Title)
	assert.Equal(t, "https://cdn/p.jpg", kept.Thumbnail)
}
