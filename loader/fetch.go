package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Asset is an opened model file.
type Asset struct {
	Body io.ReadCloser
	// Size is the body length in bytes, or -1 when unknown.
	Size int64
	// FS resolves the resources the asset references by relative URI,
	// such as external buffers and images. It may be nil.
	FS fs.FS
}

// Fetcher opens model assets by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Asset, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Asset, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Asset, error) {
	return f(ctx, url)
}

// UnsupportedSchemeError is returned by DefaultFetcher for URLs it cannot
// open.
type UnsupportedSchemeError struct {
	Scheme string
	URL    string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("loader: unsupported URL scheme %q in %s", e.Scheme, e.URL)
}

// StatusError is returned when an HTTP server answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loader: GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// DefaultFetcher opens local paths, file:// URLs and http(s):// URLs.
type DefaultFetcher struct {
	// Client performs HTTP requests. http.DefaultClient is used when nil.
	Client *http.Client
}

// Fetch implements Fetcher.
func (f *DefaultFetcher) Fetch(ctx context.Context, rawURL string) (*Asset, error) {
	u, err := url.Parse(rawURL)
	// A one letter scheme is a Windows drive.
	if err != nil || len(u.Scheme) <= 1 {
		return openFile(rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		p := u.Path
		if u.Host != "" && u.Host != "localhost" {
			p = "//" + u.Host + p
		}
		return openFile(filepath.FromSlash(p))
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	default:
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme, URL: rawURL}
	}
}

func openFile(name string) (*Asset, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	return &Asset{Body: file, Size: size, FS: os.DirFS(filepath.Dir(name))}, nil
}

func (f *DefaultFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, u *url.URL) (*Asset, error) {
	resp, err := get(ctx, f.client(), u.String())
	if err != nil {
		return nil, err
	}
	base := *u
	base.Path = path.Dir(u.Path)
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Asset{
		Body: resp.Body,
		Size: resp.ContentLength,
		FS:   &httpFS{ctx: ctx, client: f.client(), base: &base},
	}, nil
}

func get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp, nil
}

// httpFS resolves relative resources against the directory URL of an
// asset fetched over HTTP.
type httpFS struct {
	ctx    context.Context
	client *http.Client
	base   *url.URL
}

func (h *httpFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	target := h.base.JoinPath(name)
	resp, err := get(h.ctx, h.client, target.String())
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name), size: int64(len(data))}, nil
}

// memFile is an fs.File over bytes already downloaded.
type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return memInfo{f}, nil }
func (f *memFile) Close() error               { return nil }

type memInfo struct{ f *memFile }

func (i memInfo) Name() string       { return i.f.name }
func (i memInfo) Size() int64        { return i.f.size }
func (i memInfo) Mode() fs.FileMode  { return 0o444 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }
