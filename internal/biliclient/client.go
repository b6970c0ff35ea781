// Package biliclient is the external platform API client named in spec.md
// §6: qrcode login, metadata manifests, danmaku/subtitle/cover fetch, and
// Content-Length probing. The core orchestrator consumes only its typed
// return values and never reaches into this package's internals, per
// spec.md §1's scope boundary.
package biliclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilidl/bilidl/internal/config"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	referer   = "https://www.bilibili.com/"
)

// Client wraps a resty.Client configured the way original_source's
// bili_client.rs's create_api_client does: fixed user-agent/referer
// headers, an exponential-backoff-with-jitter retry policy for transient
// HTTP failures (spec.md §5), and a cookie attached via middleware rather
// than threaded manually through every call.
type Client struct {
	http     *resty.Client
	sessData string
}

// New builds a Client from the downloads config's proxy and session
// settings. SessData may be empty (pre-login).
func New(cfg *config.Downloads) (*Client, error) {
	rc := resty.New().
		SetTimeout(3 * time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Referer", referer).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	if err := applyProxy(rc, &cfg.Proxy); err != nil {
		return nil, fmt.Errorf("failed to configure proxy: %w", err)
	}

	c := &Client{http: rc, sessData: cfg.SessData}
	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if c.sessData != "" {
			req.SetHeader("Cookie", "SESSDATA="+c.sessData)
		}
		return nil
	})

	return c, nil
}

// SetSessData updates the cookie used on every subsequent request — called
// after a successful qrcode login poll.
func (c *Client) SetSessData(sessData string) {
	c.sessData = sessData
}

// HTTP exposes the underlying resty.Client for the chunked range fetcher
// (C2), which needs the client's cookie/proxy/retry configuration but
// streams a raw response body rather than decoding JSON.
func (c *Client) HTTP() *resty.Client {
	return c.http
}

func applyProxy(rc *resty.Client, p *config.Proxy) error {
	switch p.Mode {
	case config.ProxyNone, "":
		return nil
	case config.ProxySystem:
		// no explicit proxy URL: net/http's default transport already
		// honors HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment.
		return nil
	case config.ProxyHTTP:
		rc.SetProxy(fmt.Sprintf("http://%s:%d", p.Host, p.Port))
		return nil
	case config.ProxySocks5:
		rc.SetProxy(fmt.Sprintf("socks5://%s:%d", p.Host, p.Port))
		return nil
	default:
		return fmt.Errorf("unknown proxy mode %q", p.Mode)
	}
}

// HeadContentLength issues a HEAD against rawURL and returns the declared
// Content-Length — spec.md §4.4 step 3's URL probe. A URL that fails to
// yield a length is the caller's signal to drop that candidate.
func (c *Client) HeadContentLength(rawURL string) (uint64, error) {
	resp, err := c.http.R().
		SetHeader("User-Agent", userAgent).
		SetHeader("Referer", referer).
		SetTimeout(5 * time.Second).
		Head(rawURL)
	if err != nil {
		return 0, fmt.Errorf("failed to HEAD %s: %w", rawURL, err)
	}
	length := resp.Header().Get("Content-Length")
	if length == "" {
		return 0, fmt.Errorf("no Content-Length header from %s", rawURL)
	}
	var n uint64
	if _, err := fmt.Sscanf(length, "%d", &n); err != nil {
		return 0, fmt.Errorf("failed to parse Content-Length %q: %w", length, err)
	}
	return n, nil
}

// resolve builds an absolute URL with the given query values already
// wbi-signed by the caller when required.
func resolve(base string, values url.Values) string {
	if len(values) == 0 {
		return base
	}
	return base + "?" + values.Encode()
}
