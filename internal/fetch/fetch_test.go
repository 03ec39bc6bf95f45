package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	page, err := Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, page.URL)
	assert.Contains(t, page.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "text/html", page.ContentType)
}

func TestGet_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-valid-url", "ftp://example.com/file", "https://"} {
		_, err := Get(context.Background(), raw, nil)
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr, raw)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	page, err := Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestGet_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		assert.Equal(t, "probe", r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	_, err := Get(context.Background(), server.URL, &Options{UserAgent: "probe", Headers: map[string]string{"Accept-Language": "en"}})
	require.NoError(t, err)
}

func TestExtractText_RemovesNoise(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<div class="sidebar">Sidebar junk</div>
			<div class="job-description">
				<h2>Requirements</h2>
				<p>5 years experience in Go</p>
				<form>Apply now</form>
			</div>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractText(html, ContentSelectors(PlatformUnknown), NoiseSelectors(PlatformUnknown)...)
	require.NoError(t, err)
	assert.Equal(t, "Requirements\n5 years experience in Go", text)
}

func TestExtractText_FallbackToBody(t *testing.T) {
	html := `<html><body><div>  Some content here.  </div></body></html>`

	text, err := ExtractText(html, []string{".missing"})
	require.NoError(t, err)
	assert.Equal(t, "Some content here.", text)
}

func TestExtractMeta(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Meta
	}{
		{
			name: "open graph",
			html: `<html><head><meta property="og:title" content="Backend Engineer"><meta property="og:site_name" content="ACME"><title>ignored</title></head></html>`,
			want: Meta{Title: "Backend Engineer", Company: "ACME"},
		},
		{
			name: "title with company",
			html: `<html><head><title>Backend Engineer at ACME</title></head></html>`,
			want: Meta{Title: "Backend Engineer", Company: "ACME"},
		},
		{
			name: "dash separated",
			html: `<html><head><title>Data Scientist - Initech</title></head></html>`,
			want: Meta{Title: "Data Scientist", Company: "Initech"},
		},
		{
			name: "plain title",
			html: `<html><head><title>Careers</title></head></html>`,
			want: Meta{Title: "Careers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMeta(tt.html))
		})
	}
}
