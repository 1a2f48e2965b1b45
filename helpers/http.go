package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.4 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36 Edg/136.0.0.0",
	}

	referers = []string{
		"https://www.baidu.com/",
		"https://www.bing.com/",
		"https://www.sogou.com/",
	}

	acceptLanguages = []string{
		"zh-CN,zh;q=0.9",
		"zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7",
	}
)

// RandomHeaders returns browser-like headers with a random User-Agent,
// Referer and Accept-Language.
func RandomHeaders() map[string]string {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	return map[string]string{
		"User-Agent":      userAgents[rnd.Intn(len(userAgents))],
		"Accept-Language": acceptLanguages[rnd.Intn(len(acceptLanguages))],
		"Referer":         referers[rnd.Intn(len(referers))],
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}

// HTTPClient is the vendor-facing HTTP client. Every method classifies its
// failure into a CrawlerError so the retry policy can tell retryable from
// terminal errors.
type HTTPClient struct {
	client   *resty.Client
	provider string
}

// NewHTTPClient creates a client for one vendor. proxyURL may be empty.
func NewHTTPClient(provider string, timeout time.Duration, proxyURL string) *HTTPClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(RandomHeaders())
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &HTTPClient{client: client, provider: provider}
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	body, _, err := c.do(ctx, "GET", url, headers, nil)
	if err != nil {
		return err
	}
	return c.decode(url, body, out)
}

// PostJSON marshals payload (nil sends an empty body), POSTs it and decodes
// the JSON body into out. Some vendors answer with text/html carrying JSON,
// so the response Content-Type is not checked.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}, out interface{}) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return crawlerrors.NewValidation(c.provider, fmt.Sprintf("marshal payload: %v", err))
		}
	}

	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	body, _, err := c.do(ctx, "POST", url, h, data)
	if err != nil {
		return err
	}
	return c.decode(url, body, out)
}

// GetHTML issues a GET and returns the body converted to UTF-8.
func (c *HTTPClient) GetHTML(ctx context.Context, url string, headers map[string]string) (io.Reader, error) {
	h := map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	}
	for k, v := range headers {
		h[k] = v
	}

	body, contentType, err := c.do(ctx, "GET", url, h, nil)
	if err != nil {
		return nil, err
	}
	return DecodeUTF8(body, contentType)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, string, error) {
	req := c.client.R().SetContext(ctx).SetHeaders(headers)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, "", c.classifyTransport(url, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, "", crawlerrors.NewHTTPStatus(c.provider, resp.StatusCode(), url)
	}

	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

func (c *HTTPClient) decode(url string, body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return crawlerrors.NewParsing(c.provider, fmt.Sprintf("decode %s", url), err)
	}
	return nil
}

func (c *HTTPClient) classifyTransport(url string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return crawlerrors.NewTimeout(c.provider, fmt.Sprintf("request %s timed out", url), err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return crawlerrors.NewNetwork(c.provider, fmt.Sprintf("failed to fetch %s", url), err)
}

// DecodeUTF8 determines the encoding from the Content-Type header and body
// content and converts the body to UTF-8 if needed.
func DecodeUTF8(body []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)

	// If already UTF-8, return as is
	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(body), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}
