package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/util"
)

const maxFetchAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

var (
	// ErrDisallowed is returned when robots.txt forbids the download
	ErrDisallowed = eris.New("disallowed by robots.txt")
	// ErrTooLarge is returned when a document exceeds the configured size limit
	ErrTooLarge = eris.New("document exceeds size limit")
)

// Fetcher downloads documents from URLs
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil when robots.txt is ignored
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, respectRobots bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	proxy := util.NewProxyFunc(httpProxy, httpsProxy, noProxy)

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: proxy},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return eris.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
	if respectRobots {
		f.robots = util.NewRobotsChecker(userAgent, timeout, proxy)
	}
	return f
}

// FetchResult contains the downloaded document and metadata
type FetchResult struct {
	Data         []byte
	ContentType  string
	Name         string // Last path segment, used for kind detection
	FinalURL     string
	StatusCode   int
	LastModified string
}

// Fetch downloads a document from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, _, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, eris.Wrap(err, "robots")
		}
		if !allowed {
			return nil, eris.Wrapf(ErrDisallowed, "%s", rawURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf,text/html;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// Read one byte past the limit to tell a full document from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	if int64(len(body)) > f.maxBytes {
		return nil, eris.Wrapf(ErrTooLarge, "%s is larger than %d bytes", rawURL, f.maxBytes)
	}

	finalURL := resp.Request.URL.String()

	return &FetchResult{
		Data:         body,
		ContentType:  resp.Header.Get("Content-Type"),
		Name:         documentName(resp.Request.URL),
		FinalURL:     finalURL,
		StatusCode:   resp.StatusCode,
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// FetchWithRetry retries transient failures (network errors, 429 and 5xx)
// with a linear backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}

		fetchSleepFunc(time.Duration(attempt) * time.Second)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "fetch cancelled")
		}
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether a Fetch error is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		var code int
		if _, scanErr := fmt.Sscanf(rest, "%d", &code); scanErr != nil {
			return false
		}
		return code == http.StatusTooManyRequests || code >= 500
	}

	return strings.HasPrefix(msg, "fetch: ")
}

// documentName returns the last path segment of u, or its host for bare URLs
func documentName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return u.Host
	}
	return name
}
