package pkgresolve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// HTTPResponse is the classified result of one probe.
type HTTPResponse struct {
	Status int
}

// HTTPClient is the injected collaborator for online package discovery.
// The core depends only on this interface; DefaultHTTPClient supplies a
// concrete implementation.
type HTTPClient interface {
	Get(ctx context.Context, url string) (*HTTPResponse, error)
}

// defaultRequestTimeout matches the per-call HTTP timeout the resolver's
// online-discovery probes use.
const defaultRequestTimeout = 30 * time.Second

// retryableHTTPClient is the default HTTPClient, backed by
// hashicorp/go-retryablehttp so transient network failures are retried
// before the resolver treats a probe as failed.
type retryableHTTPClient struct {
	client *retryablehttp.Client
}

// NewDefaultHTTPClient returns the default retrying HTTP client.
func NewDefaultHTTPClient() HTTPClient {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.Logger = nil
	c.HTTPClient.Timeout = defaultRequestTimeout
	return &retryableHTTPClient{client: c}
}

func (r *retryableHTTPClient) Get(ctx context.Context, url string) (*HTTPResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetworkError(url, errors.ErrInvalidURL)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewNetworkError(url, errors.ErrTimeout)
		}
		return nil, errors.NewNetworkError(url, errors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()
	return &HTTPResponse{Status: resp.StatusCode}, nil
}

// probePatterns are tried in order for online discovery; the first probe
// returning HTTP 2xx/3xx wins.
func probePatterns(pkg string) []string {
	return []string{
		pkg,
		"lib" + pkg,
		pkg + "-dev",
		pkg + "-devel",
		"lib" + pkg + "-dev",
	}
}

// defaultProbeMinGap and defaultProbeDelay are the online-discovery pacing
// values used when no internal/config.Config override is supplied.
const (
	defaultProbeMinGap = 2 * time.Second
	defaultProbeDelay  = 500 * time.Millisecond
)

// newDefaultRateLimiter builds the rate limiter enforcing at least minGap
// between any two outbound discovery requests from one resolver.
func newDefaultRateLimiter(minGap time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(minGap), 1)
}

// searchEndpoint builds the target distro's package-search URL for one
// candidate name. This is a generic placeholder host: a real deployment
// would bind distro to a concrete search API.
func searchEndpoint(distro Distro, candidate string) string {
	return fmt.Sprintf("https://packages.%s.example/search?q=%s", distro, candidate)
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 400
}

// discoverOnline tries each probe pattern in order, waiting for limiter and
// delay between attempts, and returns the first candidate name that
// resolves successfully.
func discoverOnline(ctx context.Context, client HTTPClient, pkg string, distro Distro, limiter *rate.Limiter, delay time.Duration) (string, bool) {
	patterns := probePatterns(pkg)
	for i, candidate := range patterns {
		if err := limiter.Wait(ctx); err != nil {
			return "", false
		}
		resp, err := client.Get(ctx, searchEndpoint(distro, candidate))
		if err == nil && isSuccessStatus(resp.Status) {
			return candidate, true
		}
		if i < len(patterns)-1 {
			time.Sleep(delay)
		}
	}
	return "", false
}
