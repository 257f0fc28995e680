package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// fakeWiki serves the two MediaWiki queries the client issues.
func fakeWiki(t *testing.T, search, extracts string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("formatversion") != "2" {
			t.Errorf("unexpected format params: %v", q)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent")
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			w.Write([]byte(search))
		case q.Get("prop") == "extracts":
			w.Write([]byte(extracts))
		default:
			http.Error(w, "bad query", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWikipedia_Lookup(t *testing.T) {
	srv, _ := fakeWiki(t,
		`{"query":{"search":[{"title":"Paris"},{"title":"Paris (mythology)"}]}}`,
		`{"query":{"pages":[
			{"title":"Paris (mythology)","extract":"A Trojan prince."},
			{"title":"Paris","extract":"Paris is the capital of France."}
		]}}`,
	)

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := w.Lookup(context.Background(), "capital of France")
	require.NoError(t, err)
	require.Equal(t,
		"Page: Paris\nSummary: Paris is the capital of France.\n\nPage: Paris (mythology)\nSummary: A Trojan prince.",
		got,
	)
}

func TestWikipedia_Redirects(t *testing.T) {
	srv, _ := fakeWiki(t,
		`{"query":{"search":[{"title":"NYC"}]}}`,
		`{"query":{"redirects":[{"from":"NYC","to":"New York City"}],
			"pages":[{"title":"New York City","extract":"The most populous city in the US."}]}}`,
	)

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := w.Lookup(context.Background(), "nyc")
	require.NoError(t, err)
	require.Equal(t, "Page: NYC\nSummary: The most populous city in the US.", got)
}

func TestWikipedia_NoResults(t *testing.T) {
	srv, calls := fakeWiki(t, `{"query":{"search":[]}}`, `{}`)

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := w.Lookup(context.Background(), "qwzxv")
	require.NoError(t, err)
	require.Equal(t, noResults, got)
	require.Equal(t, int32(1), calls.Load())

	got, err = w.Lookup(context.Background(), "   ")
	require.NoError(t, err)
	require.Equal(t, noResults, got)
	require.Equal(t, int32(1), calls.Load())
}

func TestWikipedia_MissingPages(t *testing.T) {
	srv, _ := fakeWiki(t,
		`{"query":{"search":[{"title":"Gone"}]}}`,
		`{"query":{"pages":[{"title":"Gone","missing":true}]}}`,
	)

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := w.Lookup(context.Background(), "gone")
	require.NoError(t, err)
	require.Equal(t, noResults, got)
}

func TestWikipedia_MaxChars(t *testing.T) {
	srv, _ := fakeWiki(t,
		`{"query":{"search":[{"title":"Long"}]}}`,
		`{"query":{"pages":[{"title":"Long","extract":"`+strings.Repeat("é", 100)+`"}]}}`,
	)

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()), WithMaxChars(30))
	got, err := w.Lookup(context.Background(), "long")
	require.NoError(t, err)
	require.Equal(t, 30, utf8.RuneCountInString(got))
	require.True(t, strings.HasPrefix(got, "Page: Long\nSummary: "))
	require.True(t, utf8.ValidString(got))
}

func TestWikipedia_QueryTruncated(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query().Get("srsearch")
		w.Write([]byte(`{"query":{"search":[]}}`))
	}))
	defer srv.Close()

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := w.Lookup(context.Background(), strings.Repeat("a", 500))
	require.NoError(t, err)
	require.Len(t, seen, maxQueryLength)
}

func TestWikipedia_LimitsCountCharacters(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") == "search" {
			seen = q.Get("srsearch")
			w.Write([]byte(`{"query":{"search":[{"title":"Москва"}]}}`))
			return
		}
		w.Write([]byte(`{"query":{"pages":[{"title":"Москва","extract":"` + strings.Repeat("Ж", 3000) + `"}]}}`))
	}))
	defer srv.Close()

	w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := w.Lookup(context.Background(), strings.Repeat("Я", 400))
	require.NoError(t, err)

	require.Equal(t, maxQueryLength, utf8.RuneCountInString(seen))
	require.Equal(t, "Page: Москва\nSummary: "+strings.Repeat("Ж", 3000), got)
}

func TestWikipedia_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http status", http.StatusServiceUnavailable, `{}`, "HTTP 503"},
		{"api error", http.StatusOK, `{"error":{"code":"x","info":"bad request"}}`, "api error: bad request"},
		{"invalid json", http.StatusOK, `not json`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			w := NewWikipedia(WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := w.Lookup(context.Background(), "paris")
			require.ErrorContains(t, err, tt.wantErr)
			require.ErrorContains(t, err, "wikipedia search")
		})
	}
}

func TestWikipedia_Options(t *testing.T) {
	w := NewWikipedia(WithLang("de"), WithTopK(5))
	require.Equal(t, "https://de.wikipedia.org/w/api.php", w.APIURL())
	require.Equal(t, 5, w.topK)
	require.Equal(t, 4000, w.maxChars)

	w = NewWikipedia(WithLang(""), WithTopK(0), WithMaxChars(-1))
	require.Equal(t, "https://en.wikipedia.org/w/api.php", w.APIURL())
	require.Equal(t, 3, w.topK)
	require.Equal(t, 4000, w.maxChars)
}

func TestNewWikipediaTool(t *testing.T) {
	var got string
	tool := NewWikipediaTool(func(_ context.Context, q string) (string, error) {
		got = q
		return "ok", nil
	})
	require.Equal(t, "Wikipedia", tool.Name())
	require.Equal(t, "Search Wikipedia for information", tool.Description())

	out, err := tool.Execute(context.Background(), `{"query":"Eiffel Tower"}`)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, "Eiffel Tower", got)
}
