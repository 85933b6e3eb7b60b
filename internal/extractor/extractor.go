package extractor

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"ragstore/pkg/types"
)

const (
	// DefaultMaxBodySize bounds how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultFetchTimeout bounds a single fetch when the caller's context has
	// no deadline of its own.
	DefaultFetchTimeout = 30 * time.Second

	userAgent = "ragstore/1.0"
)

// Extractor fetches URLs and converts the payload to plain text.
type Extractor struct {
	client      *http.Client
	maxBodySize int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient replaces the default HTTP client. Tests use this to point
// the extractor at an httptest server transport.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		e.client = client
	}
}

// WithMaxBodySize overrides the response body read limit.
func WithMaxBodySize(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBodySize = n
		}
	}
}

// New creates an Extractor with a bounded default HTTP client.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		client:      &http.Client{Timeout: DefaultFetchTimeout},
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches rawURL and returns a normalized document. The returned
// document carries the source URL, the resolved content type, and the
// extracted plain text. Identifiers are left for the caller to assign.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*types.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, types.WrapError(types.KindValidation, err, "invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, types.Errorf(types.KindValidation, "unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, types.WrapError(types.KindValidation, err, "building request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, text/plain, text/markdown, */*;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, types.WrapError(types.KindFetchFailure, err, fmt.Sprintf("fetching %s", rawURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ferr := types.Errorf(types.KindFetchFailure, "fetching %s: unexpected status", rawURL)
		ferr.Status = resp.StatusCode
		return nil, ferr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodySize))
	if err != nil {
		return nil, types.WrapError(types.KindFetchFailure, err, "reading response body")
	}

	ctype := resolveContentType(resp.Header.Get("Content-Type"), u.Path, body)

	switch {
	case strings.HasPrefix(ctype, "text/html"), strings.HasPrefix(ctype, "application/xhtml"):
		ctype = "text/html"
	case strings.HasPrefix(ctype, "text/markdown"):
		ctype = "text/markdown"
	case strings.HasPrefix(ctype, "text/plain"):
		ctype = "text/plain"
	default:
		return nil, types.Errorf(types.KindUnsupportedContentType, "cannot extract text from %s", ctype)
	}

	if !utf8.Valid(body) {
		return nil, types.Errorf(types.KindParseFailure, "payload at %s is not valid UTF-8", rawURL)
	}

	var text string
	if ctype == "text/html" {
		text = htmlToText(string(body))
	} else {
		text = normalizeText(string(body))
	}

	if strings.TrimSpace(text) == "" {
		return nil, types.Errorf(types.KindParseFailure, "no extractable text at %s", rawURL)
	}

	return &types.Document{
		SourceURL:   rawURL,
		ContentType: ctype,
		Filename:    filenameFromPath(u.Path),
		Text:        text,
	}, nil
}

// resolveContentType picks a media type from the response header, the URL
// extension, and finally content sniffing, in that priority order.
func resolveContentType(header, urlPath string, body []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	switch strings.ToLower(path.Ext(urlPath)) {
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text", ".log":
		return "text/plain"
	}
	if mt, _, err := mime.ParseMediaType(http.DetectContentType(body)); err == nil {
		return mt
	}
	return "application/octet-stream"
}

// filenameFromPath derives a display filename from the URL path. Empty when
// the path has no useful final element.
func filenameFromPath(p string) string {
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return ""
	}
	return base
}
