// Package referral loads the referral feed: a JSON array of
// referrer/referee edges, either from the local data directory or
// fetched from the feed endpoint and persisted before a run.
package referral

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/onyxdex/points/types"
)

const fetchTimeout = 30 * time.Second

// Load reads a persisted referral feed.
func Load(path string) ([]types.Referral, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var refs []types.Referral
	if err := json.Unmarshal(buf, &refs); err != nil {
		return nil, errors.Wrapf(err, "unparsable referral feed %s", path)
	}
	return refs, nil
}

// Fetch downloads the referral feed, persists it to path, and returns
// the parsed edges. Transient failures are retried with exponential
// backoff until ctx is done.
func Fetch(ctx context.Context, url, path string) ([]types.Referral, error) {
	var body []byte
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("referral feed returned %s", resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, errors.Wrapf(err, "fetching referral feed from %s", url)
	}

	var refs []types.Referral
	if err := json.Unmarshal(body, &refs); err != nil {
		return nil, errors.Wrap(err, "unparsable referral feed payload")
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, errors.Wrapf(err, "persisting referral feed to %s", path)
	}
	return refs, nil
}
