// Package fetch downloads web pages and extracts their content for a
// conversation context. URL references pull a markdown-flavored
// rendering of the page; callers that want the original HTML can fetch
// the body verbatim.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inkwell-ai/inkwell/internal/httpkit"
)

// DefaultTimeout is the HTTP request timeout for fetching pages.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultMaxChars is the default character limit for extracted text.
const DefaultMaxChars = 50000

// Result holds the fetched and extracted content from a URL.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
	Length      int    `json:"length"`
	StatusCode  int    `json:"status_code"`
}

// Fetcher downloads web pages and renders them for a context window.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher with default settings.
func New() *Fetcher {
	return NewWithLimits(DefaultTimeout, DefaultMaxBytes)
}

// NewWithLimits creates a Fetcher with a custom request timeout and
// response body cap. Zero or negative values fall back to the defaults.
func NewWithLimits(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   httpkit.NewClient(httpkit.WithTimeout(timeout)),
		maxBytes: maxBytes,
	}
}

// Fetch downloads the URL and extracts markdown-flavored text content.
// maxChars limits the output length; 0 uses DefaultMaxChars.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) (*Result, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	body, resp, err := f.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	var title, content string
	switch {
	case isHTML(contentType):
		title, content = extractMarkdown(string(body))
	case isPlainText(contentType):
		content = string(body)
	case utf8.Valid(body):
		content = string(body)
	default:
		return &Result{
			URL:         resp.Request.URL.String(),
			ContentType: contentType,
			StatusCode:  resp.StatusCode,
			Content:     fmt.Sprintf("Binary content (%s), %d bytes", contentType, len(body)),
			Length:      len(body),
		}, nil
	}

	truncated := false
	if len(content) > maxChars {
		content = truncateUTF8(content, maxChars)
		truncated = true
	}

	return &Result{
		URL:         resp.Request.URL.String(),
		Title:       title,
		Content:     content,
		ContentType: contentType,
		Truncated:   truncated,
		Length:      len(content),
		StatusCode:  resp.StatusCode,
	}, nil
}

// FetchRaw downloads the URL and returns the body verbatim, up to the
// body size cap. Used when the caller wants the original HTML.
func (f *Fetcher) FetchRaw(ctx context.Context, rawURL string) (string, error) {
	body, _, err := f.download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Markdown fetches the URL and returns its rendering with the page
// title as a heading, the shape url references embed in context.
// maxChars limits the content length; 0 uses DefaultMaxChars.
func (f *Fetcher) Markdown(ctx context.Context, rawURL string, maxChars int) (string, error) {
	result, err := f.Fetch(ctx, rawURL, maxChars)
	if err != nil {
		return "", err
	}
	if result.Title != "" {
		return "# " + result.Title + "\n\n" + result.Content, nil
	}
	return result.Content, nil
}

// download GETs the URL and returns the size-capped body. Non-2xx
// responses are errors carrying a snippet of the response body.
func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, *http.Response, error) {
	if rawURL == "" {
		return nil, nil, fmt.Errorf("url is required")
	}
	rawURL = normalizeURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if detail := strings.TrimSpace(httpkit.ReadErrorBody(resp.Body, 512)); detail != "" {
			return nil, nil, fmt.Errorf("%s returned %s: %s", rawURL, resp.Status, detail)
		}
		return nil, nil, fmt.Errorf("%s returned %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp, nil
}

// normalizeURL defaults the scheme to https for bare host names.
func normalizeURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}

func isHTML(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func isPlainText(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "text/plain")
}

// truncateUTF8 truncates a string to maxChars, ensuring it doesn't
// break in the middle of a multi-byte character.
func truncateUTF8(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i]
		}
		count++
	}
	return s
}
