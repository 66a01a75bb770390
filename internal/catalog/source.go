package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultFetchTimeout = 5 * time.Second

// Source yields the raw catalog document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// HTTPSource fetches the catalog with a GET request.
type HTTPSource struct {
	url  string
	http *http.Client
}

// NewHTTPSource builds a source for an absolute URL. A nil client gets a default with timeout.
func NewHTTPSource(url string, client *http.Client, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{url: strings.TrimSpace(url), http: client}
}

// Open performs the request. Non-2xx answers are returned as *LoadError with KindStatus.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &LoadError{Kind: KindTransport, Source: s.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &LoadError{Kind: KindTransport, Source: s.url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := drainError(resp.Body)
		resp.Body.Close()
		return nil, &LoadError{
			Kind:   KindStatus,
			Source: s.url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, detail),
		}
	}
	return resp.Body, nil
}

func (s *HTTPSource) String() string { return s.url }

// FileSource reads the catalog from a file system.
type FileSource struct {
	fsys fs.FS
	name string
}

// NewFileSource reads name from fsys. A nil fsys reads name from the OS file system.
func NewFileSource(fsys fs.FS, name string) *FileSource {
	return &FileSource{fsys: fsys, name: name}
}

// Open opens the file.
func (s *FileSource) Open(context.Context) (io.ReadCloser, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if s.fsys == nil {
		f, err = os.Open(s.name)
	} else {
		f, err = s.fsys.Open(s.name)
	}
	if err != nil {
		kind := KindTransport
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindStatus
		}
		return nil, &LoadError{Kind: kind, Source: s.name, Err: err}
	}
	return f, nil
}

func (s *FileSource) String() string { return s.name }

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
