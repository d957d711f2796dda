package utils

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"
)

const userAgent = "windows-build-numbers"

// defaultRequestTimeout bounds a request whose context has no deadline.
var defaultRequestTimeout = 60 * time.Second

// StatusError is returned for a response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error. status code: %d, url: %s", e.StatusCode, e.URL)
}

// Fetch returns the content of src. http(s) URLs are requested directly,
// anything else (local paths, file::, s3::, ...) goes through go-getter.
func Fetch(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return FetchURL(ctx, src)
	}

	tmpFile, err := DownloadToTempFile(ctx, src)
	if err != nil {
		return nil, xerrors.Errorf("failed to download %s: %w", src, err)
	}
	defer os.RemoveAll(filepath.Dir(tmpFile))

	b, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, xerrors.Errorf("unable to read %s: %w", src, err)
	}
	return b, nil
}

// FetchURL returns the HTTP response body. There is no retry; the deadline
// of ctx is used as the request timeout, defaultRequestTimeout otherwise.
func FetchURL(ctx context.Context, url string) ([]byte, error) {
	timeout := defaultRequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, context.DeadlineExceeded)
		}
	}
	req := gorequest.New().Get(url).Set("User-Agent", userAgent).Timeout(timeout)

	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, body, errs := req.EndBytes()
		switch {
		case len(errs) > 0:
			done <- result{err: xerrors.Errorf("HTTP error. url: %s, err: %w", url, errs[0])}
		case resp.StatusCode != http.StatusOK:
			done <- result{err: &StatusError{URL: url, StatusCode: resp.StatusCode}}
		default:
			done <- result{body: body}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, ctx.Err())
	case r := <-done:
		return r.body, r.err
	}
}
