package toolchain

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Publishes toolchain archives keyed by version.
type Source interface {

	// Returns the raw tag names offered by the source, unfiltered.
	Tags(ctx context.Context) ([]string, error)

	// Opens the archive for v. The caller closes the reader.
	Open(ctx context.Context, v Version) (io.ReadCloser, Format, error)
}

// Creates the HTTP client used for remote listings and downloads.
//
// The TLS handshake timeout is raised for slow hosts and the whole request,
// body included, is bounded so a stalled download eventually fails.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second

	return &http.Client{
		Transport: transport,
		Timeout:   10 * time.Minute,
	}
}
