package source

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"

	"freegames_bot/internal/cache"
	"freegames_bot/internal/fetcher"
)

// routeTransport serves canned bodies keyed by exact request URL and
// answers 404 for anything else.
type routeTransport struct {
	routes map[string]string
	calls  []string
}

func (m *routeTransport) Do(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	m.calls = append(m.calls, url)
	body, ok := m.routes[url]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSourceFetcher(t *testing.T, transport fetcher.HTTPClient) *fetcher.Fetcher {
	t.Helper()

	store, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	return fetcher.New(transport, store, testLogger())
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

// Ensure every variant satisfies the Adapter interface.
var (
	_ Adapter = (*Epic)(nil)
	_ Adapter = (*Reddit)(nil)
	_ Adapter = (*ITAD)(nil)
)
