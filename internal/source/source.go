// Package source reads documents from local files, standard input, or
// http(s) URLs, decompressing .xz and .gz content by name.
package source

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/CitableCorpus/core/errors"
	"github.com/FocuswithJustin/CitableCorpus/internal/logging"
)

// Stdin is the location that reads standard input.
const Stdin = "-"

// DefaultMaxBytes caps how much a Loader reads from one location.
const DefaultMaxBytes = 256 << 20

// Loader opens document locations.
type Loader struct {
	// Client is used for http and https locations.
	Client *http.Client
	// MaxBytes limits the decompressed size of a document. Zero means
	// DefaultMaxBytes.
	MaxBytes int64
	// Stdin is read for the "-" location. Nil means os.Stdin.
	Stdin io.Reader
}

// Default is the loader used by Read.
var Default = &Loader{Client: &http.Client{Timeout: 60 * time.Second}}

// Read reads location with the Default loader.
func Read(ctx context.Context, location string) ([]byte, error) {
	return Default.Read(ctx, location)
}

// IsURL reports whether location is an http or https URL.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Read returns the full, decompressed content at location.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	start := time.Now()
	r, err := l.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewIO("read", location, err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewIO("read", location, fmt.Errorf("document exceeds %d bytes", limit))
	}

	logging.SourceFetched(ctx, location, len(data), time.Since(start))
	return data, nil
}

// Open returns a stream of the decompressed content at location. The caller
// must close it.
func (l *Loader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var (
		raw  io.ReadCloser
		name = location
		err  error
	)
	switch {
	case location == Stdin:
		in := l.Stdin
		if in == nil {
			in = os.Stdin
		}
		raw = io.NopCloser(in)
	case IsURL(location):
		raw, name, err = l.fetch(ctx, location)
	default:
		raw, err = os.Open(location)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &errors.NotFoundError{Resource: "file", ID: location, Err: err}
			}
			return nil, errors.NewIO("open", location, err)
		}
	}
	if err != nil {
		return nil, err
	}
	return decompress(raw, name, location)
}

func (l *Loader) fetch(ctx context.Context, location string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", errors.NewIO("fetch", location, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.NewIO("fetch", location, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, "", errors.NewNotFound("URL", location)
		}
		return nil, "", errors.NewIO("fetch", location, fmt.Errorf("unexpected status %s", resp.Status))
	}

	// Decompression is chosen by the URL path, not the query string.
	name := location
	if u, err := url.Parse(location); err == nil {
		name = u.Path
	}
	return resp.Body, name, nil
}

// decompressor closes both the decompressing reader and the underlying stream.
type decompressor struct {
	io.Reader
	closers []io.Closer
}

func (d *decompressor) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func decompress(raw io.ReadCloser, name, location string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".xz"):
		xzr, err := xz.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, errors.NewIO("decompress", location, err)
		}
		// xz reader doesn't need closing
		return &decompressor{Reader: xzr, closers: []io.Closer{raw}}, nil
	case strings.HasSuffix(name, ".gz"):
		gzr, err := gzip.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, errors.NewIO("decompress", location, err)
		}
		return &decompressor{Reader: gzr, closers: []io.Closer{gzr, raw}}, nil
	}
	return raw, nil
}

// Name returns the base name of location without compression suffixes,
// used to label corpora read from it.
func Name(location string) string {
	if location == Stdin {
		return "stdin"
	}
	name := location
	if IsURL(location) {
		if u, err := url.Parse(location); err == nil {
			name = u.Path
		}
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".xz"), ".gz")
	if name == "" {
		return location
	}
	return name
}
