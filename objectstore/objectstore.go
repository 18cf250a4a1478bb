// Package objectstore supplies the `Fetcher` collaborator package
// task's DataUrl contract depends on (spec §4.H: "fetches a URL ...
// using an external object-store collaborator (filesystem, HTTP,
// S3)"). Only filesystem and HTTP are implemented directly; an S3 (or
// any other blob-store SDK) implementation is a thin addition behind
// the same Store interface and is not wired in here since no pack
// example repo gave a concrete SDK to ground one on (see DESIGN.md).
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store fetches the raw bytes behind a URL or path. It satisfies
// package task's Fetcher interface directly.
type Store interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Dispatcher routes a location to whichever Store understands its
// scheme, so callers can hand a single collaborator to every DataUrl
// task regardless of where a given chart's data actually lives.
type Dispatcher struct {
	stores map[string]Store
	// Default is used when location has no recognised scheme (a bare
	// filesystem path).
	Default Store
}

// NewDispatcher builds a Dispatcher with filesystem and HTTP(S)
// support registered; additional schemes (e.g. "s3") can be added
// with Register.
func NewDispatcher(baseDir string) *Dispatcher {
	fs := &FileStore{BaseDir: baseDir}
	httpStore := &HTTPStore{Client: http.DefaultClient}
	return &Dispatcher{
		stores: map[string]Store{
			"http":  httpStore,
			"https": httpStore,
			"file":  fs,
		},
		Default: fs,
	}
}

// Register binds a Store to a URL scheme.
func (d *Dispatcher) Register(scheme string, s Store) { d.stores[scheme] = s }

// Fetch dispatches location to the Store registered for its scheme, or
// to Default if location has none.
func (d *Dispatcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err == nil && u.Scheme != "" {
		if s, ok := d.stores[u.Scheme]; ok {
			return s.Fetch(ctx, location)
		}
		return nil, fmt.Errorf("objectstore: no store registered for scheme %q", u.Scheme)
	}
	if d.Default == nil {
		return nil, fmt.Errorf("objectstore: no default store configured for %q", location)
	}
	return d.Default.Fetch(ctx, location)
}

// FileStore reads from the local filesystem, rooted at BaseDir (empty
// BaseDir means paths are used as given).
type FileStore struct {
	BaseDir string
}

func (f *FileStore) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := strings.TrimPrefix(location, "file://")
	if f.BaseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(f.BaseDir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %q: %w", p, err)
	}
	return data, nil
}

// HTTPStore fetches over HTTP(S).
type HTTPStore struct {
	Client  *http.Client
	Timeout time.Duration
}

func (h *HTTPStore) Fetch(ctx context.Context, location string) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore: build request for %q: %w", location, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("objectstore: fetch %q: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("objectstore: fetch %q: status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read body for %q: %w", location, err)
	}
	return data, nil
}
