package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/guiyumin/mediahub/internal/core/httpclient"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/tidwall/gjson"
)

var (
	// unsupportedRe recognises a provider's definitive "this content type is
	// not supported" reply. The wording must name the content.
	unsupportedRe = regexp.MustCompile(`(?i)\b(content|media|post|url|link|video|story|stories|reel)\b[\w\s:'-]*\b(not\s+supported|unsupported|cannot\s+be\s+downloaded)\b|\b(unsupported|no\s+downloadable)\s+(content|media|post|url|link|video)`)

	// accountRe marks replies about the caller's subscription rather than the
	// content. Those stay retryable on another provider.
	accountRe = regexp.MustCompile(`(?i)\b(plan|subscri\w*|quota|rate[\s-]*limit\w*|api[\s-]*key|tier|billing|endpoint)\b`)
)

// httpResolver calls one RapidAPI-style endpoint.
type httpResolver struct {
	cfg    Config
	key    string
	client *http.Client
}

func (r *httpResolver) Name() string {
	return r.cfg.Name
}

func (r *httpResolver) Resolve(ctx context.Context, tag platform.Tag, rawURL string) Outcome {
	req, err := r.newRequest(ctx, rawURL)
	if err != nil {
		return SoftFailure(fmt.Errorf("%s: building request: %w", r.cfg.Name, err))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return SoftFailure(fmt.Errorf("%s: request failed: %w", r.cfg.Name, err))
	}
	defer resp.Body.Close()

	raw, err := httpclient.ReadBody(resp)
	if err != nil {
		return SoftFailure(fmt.Errorf("%s: %w", r.cfg.Name, err))
	}

	if reason, ok := unsupportedReason(raw); ok {
		return HardFailure(fmt.Errorf("%s: %s", r.cfg.Name, reason))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SoftFailure(fmt.Errorf("%s: unexpected status %d", r.cfg.Name, resp.StatusCode))
	}
	if !gjson.ValidBytes(raw) {
		return SoftFailure(fmt.Errorf("%s: response is not valid JSON", r.cfg.Name))
	}

	info := r.cfg.Normalize(raw)
	info.Platform = tag
	info.Source = r.cfg.Name
	return Resolved(info)
}

func (r *httpResolver) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	scheme := r.cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	endpoint := scheme + "://" + r.cfg.Host + r.cfg.Path(rawURL)

	method := r.cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.cfg.FormBody {
		body = strings.NewReader(url.Values{"url": {rawURL}}.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if r.cfg.FormBody {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", r.cfg.Host)
	if r.key != "" {
		req.Header.Set("x-rapidapi-key", r.key)
	}
	return req, nil
}

// unsupportedReason inspects the common error fields of a provider reply.
func unsupportedReason(raw []byte) (string, bool) {
	if !gjson.ValidBytes(raw) {
		return "", false
	}
	doc := gjson.ParseBytes(raw)
	for _, path := range []string{"error", "message", "msg", "data.error", "data.message"} {
		v := doc.Get(path)
		if v.Type != gjson.String {
			continue
		}
		if unsupportedRe.MatchString(v.Str) && !accountRe.MatchString(v.Str) {
			return strings.TrimSpace(v.Str), true
		}
	}
	return "", false
}

// ErrNotConfigured is returned when no resolver could be attempted at all.
var ErrNotConfigured = errors.New("no provider configured")
