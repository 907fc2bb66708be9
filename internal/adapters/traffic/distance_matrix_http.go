package traffic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// Top-level status other than OK, e.g. REQUEST_DENIED or OVER_QUERY_LIMIT.
type apiStatusError struct {
	Status  string
	Message string
}

func (e *apiStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("distance matrix status %s", e.Status)
	}
	return fmt.Sprintf("distance matrix status %s: %s", e.Status, e.Message)
}

// Per-element status other than OK, e.g. NOT_FOUND or ZERO_RESULTS.
type elementStatusError struct {
	Status string
}

func (e *elementStatusError) Error() string {
	return fmt.Sprintf("distance matrix element status %s", e.Status)
}

// IsRequestDenied reports whether err came from a rejected credential or request.
func IsRequestDenied(err error) bool {
	var ae *apiStatusError
	return errors.As(err, &ae) && ae.Status == "REQUEST_DENIED"
}

func (p *DistanceMatrixPredictor) do(req *http.Request) (*http.Response, error) {
	resp, err := p.session.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, classify(&httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		})
	}
	return resp, nil
}

// classify wraps non-transient failures so the retry loop stops on them.
// Network errors, 429/5xx and throttling statuses stay retryable.
func classify(err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case 429, 500, 502, 503, 504:
			return err
		}
		return permanent(err)
	}

	var ae *apiStatusError
	if errors.As(err, &ae) {
		switch ae.Status {
		case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
			return err
		}
		return permanent(err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return permanent(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err
	}

	return permanent(err)
}

func permanent(err error) error {
	var pe *backoff.PermanentError
	if errors.As(err, &pe) {
		return err
	}
	return backoff.Permanent(err)
}

// withRetry runs op until it succeeds, returns a permanent error, runs out
// of retries or ctx is done.
func (p *DistanceMatrixPredictor) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInitial
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Dur("wait", wait).Msg("distance matrix request failed, retrying")
	}

	return backoff.RetryNotify(op, policy, notify)
}
