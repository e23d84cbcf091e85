// Package device talks to a tablet's browse-and-access web server, which
// serves directory listings as HTML pages and files as plain downloads.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/notepdf/format"
	"github.com/tsawler/notepdf/internal/logging"
)

// DefaultPort is the port the device serves on.
const DefaultPort = 8089

var (
	// ErrNotFound is returned for a path the device does not have.
	ErrNotFound = errors.New("device: not found")
	// ErrNoListing is returned when a directory page carries no listing.
	ErrNoListing = errors.New("device: page has no file listing")
	// ErrUnsafePath is returned for a device path that would be saved
	// outside the download directory.
	ErrUnsafePath = errors.New("device: path escapes download directory")
)

// IOError reports a failed request to the device.
type IOError struct {
	Op     string // list, fetch
	URL    string
	Status int // HTTP status, or 0 for transport failures
	Err    error
}

func (e *IOError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("device %s %s: status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("device %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Client is a device client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the device at host. A zero port means
// DefaultPort.
func New(host string, port int, timeout time.Duration) (*Client, error) {
	if host == "" {
		return nil, errors.New("device: no host configured")
	}
	if port == 0 {
		port = DefaultPort
	}
	return NewURL("http://"+net.JoinHostPort(host, strconv.Itoa(port)), &http.Client{Timeout: timeout})
}

// NewURL returns a client for the server at base. A nil hc means
// http.DefaultClient.
func NewURL(base string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("device: bad url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("device: bad url %q", base)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: u, http: hc}, nil
}

// URL returns the address of a device path.
func (c *Client) URL(p string) string {
	u := *c.base
	u.Path = path.Join("/", c.base.Path, strings.TrimPrefix(p, "/"))
	return u.String()
}

func (c *Client) get(ctx context.Context, op, p string) (*http.Response, error) {
	target := c.URL(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &IOError{Op: op, URL: target, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/octet-stream;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &IOError{Op: op, URL: target, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, &IOError{Op: op, URL: target, Status: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &IOError{Op: op, URL: target, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return resp, nil
}

// List returns the entries of a device directory.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	resp, err := c.get(ctx, "list", dir)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	l, err := ParseListing(resp.Body)
	if err != nil {
		return nil, &IOError{Op: "list", URL: c.URL(dir), Err: err}
	}
	return l.FileList, nil
}

// Walk lists dir and, when recursive, every directory below it, calling fn
// for each file entry.
func (c *Client) Walk(ctx context.Context, dir string, recursive bool, fn func(Entry) error) error {
	entries, err := c.List(ctx, dir)
	if err != nil {
		return err
	}
	var subdirs []string
	for _, e := range entries {
		if e.IsDirectory {
			subdirs = append(subdirs, e.URI)
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if !recursive {
		return nil
	}
	for _, d := range subdirs {
		if err := c.Walk(ctx, d, true, fn); err != nil {
			return err
		}
	}
	return nil
}

// Notebooks returns the .note files under dir.
func (c *Client) Notebooks(ctx context.Context, dir string, recursive bool) ([]Entry, error) {
	var out []Entry
	err := c.Walk(ctx, dir, recursive, func(e Entry) error {
		if format.Detect(e.URI) == format.Note {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Fetch copies the file at p to w.
func (c *Client) Fetch(ctx context.Context, p string, w io.Writer) error {
	resp, err := c.get(ctx, "fetch", p)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &IOError{Op: "fetch", URL: c.URL(p), Err: err}
	}
	return nil
}

// LocalPath returns where the device file at uri is saved under root. The
// device path is cleaned as an absolute path, so ".." segments cannot climb
// above root.
func LocalPath(root, uri string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+uri), "/")
	if rel == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, uri)
	}
	local := filepath.Join(root, filepath.FromSlash(rel))
	if r, err := filepath.Rel(root, local); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, uri)
	}
	return local, nil
}

// Download saves the file described by e under root, mirroring its device
// path. A local copy of the same size is kept unless force is set. It
// returns the local path and whether a download happened.
func (c *Client) Download(ctx context.Context, e Entry, root string, force bool) (string, bool, error) {
	local, err := LocalPath(root, e.URI)
	if err != nil {
		return "", false, err
	}
	if !force && upToDate(local, e.Size) {
		logging.From(ctx).Debug().Str("path", local).Msg("local copy up to date")
		return local, false, nil
	}
	if err := c.save(ctx, e.URI, local); err != nil {
		return "", false, err
	}
	return local, true, nil
}

func upToDate(local string, size int64) bool {
	info, err := os.Stat(local)
	return err == nil && info.Mode().IsRegular() && (size == 0 || info.Size() == size)
}

// save fetches uri into local through a temporary sibling.
func (c *Client) save(ctx context.Context, uri, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(local), "."+filepath.Base(local)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := c.Fetch(ctx, uri, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), local)
}
