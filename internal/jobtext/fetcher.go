package jobtext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"pmtailor/internal/common"
	"pmtailor/internal/config"
	"pmtailor/internal/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker/v2"
)

// Fetcher loads raw job-description text from a local file or a remote
// URL. Remote fetches go through a circuit breaker so a flapping job
// board cannot hammer outbound requests.
type Fetcher struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker[string]
	cfg    config.FetchConfig
	logger *errors.Logger
}

// NewFetcher creates a fetcher from configuration. The logger may be nil.
func NewFetcher(cfg config.FetchConfig, logger *errors.Logger) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}

	if cfg.CircuitBreaker.Enabled {
		settings := gobreaker.Settings{
			Name:        "JobText-Fetch",
			MaxRequests: cfg.CircuitBreaker.MaxRequests,
			Interval:    cfg.CircuitBreaker.Interval,
			Timeout:     cfg.CircuitBreaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cfg.CircuitBreaker.MinRequests &&
					failureRatio >= cfg.CircuitBreaker.FailureThreshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				if logger != nil {
					logger.Info("Circuit breaker state changed",
						"name", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		}
		f.cb = gobreaker.NewCircuitBreaker[string](settings)
	}

	return f
}

// IsURL reports whether a job source looks like a fetchable URL.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load resolves a job source to raw text: URLs are fetched remotely,
// everything else is treated as a local file path.
func (f *Fetcher) Load(ctx context.Context, source string) (string, error) {
	if IsURL(source) {
		return f.fetchURL(ctx, source)
	}

	fp := common.NewFileProcessor(f.logger)
	contents, err := fp.ValidateAndReadFiles(source)
	if err != nil {
		return "", err
	}
	return contents[0], nil
}

// fetchURL retrieves a job posting over HTTP through the circuit breaker
// and extracts readable text from HTML responses.
func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (string, error) {
	if f.logger != nil {
		f.logger.Debug("Fetching job description", "url", rawURL)
	}

	fetch := func() (string, error) {
		return f.doRequest(ctx, rawURL)
	}

	var text string
	var err error
	if f.cb != nil {
		text, err = f.cb.Execute(fetch)
	} else {
		text, err = fetch()
	}
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("failed to fetch job description from %s", rawURL), err).
			WithContext("url", rawURL)
	}

	if f.logger != nil {
		f.logger.Info("Job description fetched", "url", rawURL, "text_length", len(text))
	}
	return text, nil
}

// doRequest performs one HTTP GET and converts the response to plain text.
func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && f.logger != nil {
			f.logger.Warn("Failed to close response body", "url", rawURL, "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body := io.LimitReader(resp.Body, f.cfg.MaxBodySize)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		return extractText(body)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

// extractText pulls readable text out of an HTML document, dropping
// script and style content and collapsing whitespace runs.
func extractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()

	var lines []string
	for line := range strings.SplitSeq(doc.Find("body").Text(), "\n") {
		line = whitespaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
