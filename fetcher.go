package ftsload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// FetchError reports that one year's dataset could not be retrieved or
// read. The caller skips the year and continues.
type FetchError struct {
	Year   int
	Status int // HTTP status, 0 when the failure is not an HTTP response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch year %d: status %d: %v", e.Year, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch year %d: %v", e.Year, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// fetcher retrieves a dataset into local, transient storage.
type fetcher interface {
	fetch(context.Context, DatasetReference) (io.Reader, func(), error)
}

// The FTS endpoint rejects bare clients, so requests carry ordinary
// browser headers. Taken from a working browser session.
var fetchHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:138.0) Gecko/20100101 Firefox/138.0",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
	"Referer":         "https://ec.europa.eu/budget/financial-transparency-system/help.html",
	"Connection":      "keep-alive",
}

type httpFetcher struct {
	client *http.Client
}

func newHTTPFetcher(client *http.Client) *httpFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{client: client}
}

// fetch downloads the referenced workbook to a temporary file and returns
// a reader positioned at its start. The closer removes the file; callers
// must invoke it whether or not processing succeeds.
func (f *httpFetcher) fetch(ctx context.Context, ref DatasetReference) (io.Reader, func(), error) {
	l := log.Ctx(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, nil, &FetchError{Year: ref.Year, Err: xerrors.Errorf("failed to build request: %w", err)}
	}
	for k, v := range fetchHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &FetchError{Year: ref.Year, Err: xerrors.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, &FetchError{
			Year:   ref.Year,
			Status: resp.StatusCode,
			Err:    xerrors.Errorf("unexpected status fetching %s", ref.URL),
		}
	}

	tmp, err := os.CreateTemp("", fmt.Sprintf("fts-%d-*.xlsx", ref.Year))
	if err != nil {
		return nil, nil, &FetchError{Year: ref.Year, Err: xerrors.Errorf("failed to create temp file: %w", err)}
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		cleanup()
		return nil, nil, &FetchError{Year: ref.Year, Err: xerrors.Errorf("failed to download body: %w", err)}
	}
	if n == 0 {
		cleanup()
		return nil, nil, &FetchError{Year: ref.Year, Err: xerrors.New("empty response body")}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, &FetchError{Year: ref.Year, Err: xerrors.Errorf("failed to rewind temp file: %w", err)}
	}

	l.Debug().Int("year", ref.Year).Int64("bytes", n).Str("file", tmp.Name()).Msg("dataset downloaded")

	return tmp, cleanup, nil
}
