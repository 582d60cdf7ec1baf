package booru

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"booru-dl/internal/model"
)

const (
	retryMaxAttempts   = 5
	networkMaxAttempts = 3
	backoffBase        = 2 * time.Second
	backoffCap         = 30 * time.Second
)

// backoffDuration returns the delay before the (attempt+1)th retry,
// doubling from backoffBase and saturating at backoffCap.
func backoffDuration(attempt int) time.Duration {
	d := backoffBase << attempt
	if d > backoffCap || d <= 0 {
		return backoffCap
	}
	return d
}

// sleep waits d or returns ctx.Err() if cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetch performs req with the extractor/downloader shared retry policy:
// 401/403 -> AuthFailed (fatal, not retried); 429 and 5xx -> retry up to
// retryMaxAttempts with exponential backoff; transport errors -> retry up
// to networkMaxAttempts, then Network. Returns the response body on a 200.
func fetch(ctx context.Context, client *http.Client, newReq func() (*http.Request, error), cred model.Credential) ([]byte, error) {
	var networkAttempt, retryAttempt int

	for {
		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("%w: building request: %v", model.ErrNetwork, err)
		}
		req = req.WithContext(ctx)
		if !cred.Anonymous() {
			req.SetBasicAuth(cred.Login, cred.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			networkAttempt++
			if networkAttempt >= networkMaxAttempts {
				return nil, fmt.Errorf("%w: %v", model.ErrNetwork, err)
			}
			log.WithError(err).Warnf("request failed, retrying (%d/%d)", networkAttempt, networkMaxAttempts)
			if err := sleep(ctx, backoffDuration(networkAttempt-1)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("%w: reading response body: %v", model.ErrNetwork, readErr)
			}
			return body, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status %d", model.ErrAuthFailed, resp.StatusCode)

		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			return nil, fmt.Errorf("%w: status %d", model.ErrNotFound, resp.StatusCode)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAttempt++
			if retryAttempt >= retryMaxAttempts {
				return nil, fmt.Errorf("%w: status 429 after %d attempts", model.ErrRateLimited, retryAttempt)
			}
			d := backoffDuration(retryAttempt - 1)
			log.Warnf("rate limited, retrying (%d/%d) after %s", retryAttempt, retryMaxAttempts, d)
			if err := sleep(ctx, d); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			retryAttempt++
			if retryAttempt >= retryMaxAttempts {
				return nil, fmt.Errorf("%w: status %d after %d attempts", model.ErrNetwork, resp.StatusCode, retryAttempt)
			}
			d := backoffDuration(retryAttempt - 1)
			log.Warnf("server error %d, retrying (%d/%d) after %s", resp.StatusCode, retryAttempt, retryMaxAttempts, d)
			if err := sleep(ctx, d); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
	}
}
