// Package fetch retrieves job posting pages and reduces them to plain text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent mimics a desktop browser; several job boards refuse unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Text extraction limits
const (
	// MinSelectorText is the text length a container must exceed to count as the posting.
	MinSelectorText = 200
	// MaxFallbackText caps body text when no container qualified.
	MaxFallbackText = 8000
	// maxBodyBytes bounds how much HTML is read from one response.
	maxBodyBytes = 5 << 20
)

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
	Rendered    bool
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	UseBrowser bool
	Logger     *zap.Logger
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// URL retrieves HTML content from a URL.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if err := ValidateURL(urlStr); err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: opts.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return result, nil
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	return nil
}

// Job fetches a posting and extracts its text. When the static page yields fewer than
// MinContentLength characters and opts.UseBrowser is set, the page is rendered in headless
// Chrome and extracted again.
func Job(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	platform := DetectPlatform(urlStr)
	result, err := URL(ctx, urlStr, opts)
	if err != nil && !opts.UseBrowser {
		return nil, err
	}
	if err == nil {
		result.Text, err = JobText(result.HTML, platform)
		if err != nil {
			return nil, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
		}
		if !opts.UseBrowser || !ShouldUseBrowser(result.Text) {
			return result, nil
		}
		log.Info("static page text too short, rendering in browser",
			zap.String("url", urlStr), zap.Int("chars", utf8.RuneCountInString(result.Text)))
	} else {
		log.Warn("static fetch failed, rendering in browser", zap.String("url", urlStr), zap.Error(err))
	}

	html, berr := WithBrowser(ctx, urlStr, opts.Timeout, log)
	if berr != nil {
		if result != nil && result.Text != "" {
			// keep whatever the static page gave us
			log.Warn("browser rendering failed, using static text", zap.Error(berr))
			return result, nil
		}
		return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: berr}
	}
	text, err := JobText(html, platform)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}
	return &Result{URL: urlStr, HTML: html, Text: text, StatusCode: http.StatusOK, Rendered: true}, nil
}

// JobText extracts posting text from a job page. Platform selectors are tried first, then
// JobPostingSelectors; the first container with more than MinSelectorText characters wins.
// Otherwise the body text is used, capped at MaxFallbackText characters.
func JobText(html string, platform Platform) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer, header").Remove()
	doc.Find(strings.Join(PlatformNoiseSelectors(platform), ", ")).Remove()

	selectors := append(PlatformContentSelectors(platform), JobPostingSelectors()...)
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := selectionText(sel)
		if utf8.RuneCountInString(text) > MinSelectorText {
			return text, nil
		}
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return truncateRunes(selectionText(body), MaxFallbackText), nil
}

// JobPostingSelectors returns the generic job description containers in priority order.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".description",
		"#job-description",
		"[data-testid='jobDescription']",
		".posting-page",
		"#content",
		"article",
		"main",
		".content",
	}
}

// selectionText returns the text of sel with one line per block of text.
func selectionText(sel *goquery.Selection) string {
	var lines []string
	sel.Find("br").ReplaceWithHtml("\n")
	sel.Find("p, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	for _, line := range strings.Split(sel.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
