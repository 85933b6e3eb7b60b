package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/pkg/types"
)

func newTestExtractor(handler http.Handler) (*Extractor, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(WithHTTPClient(srv.Client())), srv
}

func TestExtractPlainText(t *testing.T) {
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("hello   world\r\n\r\n\r\nsecond paragraph"))
	}))
	defer srv.Close()

	doc, err := e.Extract(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", doc.ContentType)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, "hello world\n\nsecond paragraph", doc.Text)
	assert.Equal(t, srv.URL+"/notes.txt", doc.SourceURL)
}

func TestExtractHTML(t *testing.T) {
	page := `<html><head><title>T</title><style>p{color:red}</style>
<script>var x = "<p>not text</p>";</script></head>
<body><h1>Heading</h1><p>First &amp; foremost.</p><p>Second <b>bold</b> bit.</p>
<!-- hidden --></body></html>`
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	doc, err := e.Extract(context.Background(), srv.URL+"/page.html")
	require.NoError(t, err)
	assert.Equal(t, "text/html", doc.ContentType)
	assert.Contains(t, doc.Text, "Heading")
	assert.Contains(t, doc.Text, "First & foremost.")
	assert.Contains(t, doc.Text, "Second bold bit.")
	assert.NotContains(t, doc.Text, "<p>")
	assert.NotContains(t, doc.Text, "color:red")
	assert.NotContains(t, doc.Text, "not text")
	assert.NotContains(t, doc.Text, "hidden")
	// Block elements become paragraph breaks
	assert.Contains(t, doc.Text, "foremost.\n\nSecond")
}

func TestExtractMarkdownByExtension(t *testing.T) {
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No usable content-type header; extension decides
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("# Title\n\nSome *markdown* text."))
	}))
	defer srv.Close()

	doc, err := e.Extract(context.Background(), srv.URL+"/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", doc.ContentType)
	assert.Contains(t, doc.Text, "# Title")
}

func TestExtractFetchFailureStatus(t *testing.T) {
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := e.Extract(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindFetchFailure))

	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.Status)
}

func TestExtractUnreachableHost(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "http://127.0.0.1:1/unreachable")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindFetchFailure))
}

func TestExtractUnsupportedContentType(t *testing.T) {
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer srv.Close()

	_, err := e.Extract(context.Background(), srv.URL+"/pic.png")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindUnsupportedContentType))
}

func TestExtractEmptyBody(t *testing.T) {
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	}))
	defer srv.Close()

	_, err := e.Extract(context.Background(), srv.URL+"/empty.txt")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindParseFailure))
}

func TestExtractInvalidUTF8(t *testing.T) {
	e, srv := newTestExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte{0xff, 0xfe, 'h', 'i'})
	}))
	defer srv.Close()

	_, err := e.Extract(context.Background(), srv.URL+"/data.txt")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindParseFailure))
}

func TestExtractInvalidScheme(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "ftp://example.com/file.txt")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestExtractBodySizeLimit(t *testing.T) {
	big := strings.Repeat("chunk of text. ", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(big))
	}))
	defer srv.Close()

	limited := New(WithHTTPClient(srv.Client()), WithMaxBodySize(100))
	doc, err := limited.Extract(context.Background(), srv.URL+"/big.txt")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(doc.Text), 100)
}

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		urlPath string
		body    []byte
		want    string
	}{
		{"header wins", "text/html; charset=utf-8", "/file.txt", nil, "text/html"},
		{"extension fallback", "", "/doc.md", nil, "text/markdown"},
		{"sniff fallback", "", "/data", []byte("<html><body>hi</body></html>"), "text/html"},
		{"octet-stream ignored", "application/octet-stream", "/notes.txt", nil, "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveContentType(tt.header, tt.urlPath, tt.body))
		})
	}
}
