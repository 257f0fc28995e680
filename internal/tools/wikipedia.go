package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"wikichat/internal/agent"
	"wikichat/internal/textutil"
	"wikichat/internal/trace"

	"github.com/tidwall/gjson"
)

const (
	WikipediaName        = "Wikipedia"
	WikipediaDescription = "Search Wikipedia for information"

	noResults = "No good Wikipedia Search Result was found"

	maxQueryLength = 300
	maxBodyBytes   = 2 << 20
)

// NewWikipediaTool builds the descriptor the agent sees for lookup.
func NewWikipediaTool(lookup agent.LookupFunc) agent.Tool {
	return agent.NewTool(WikipediaName, WikipediaDescription, lookup)
}

// Wikipedia queries the MediaWiki API: a full-text search followed by the
// plain-text introduction of each hit.
type Wikipedia struct {
	client   *http.Client
	apiURL   string
	topK     int
	maxChars int
}

type WikipediaOption func(*Wikipedia)

// WithAPIURL overrides the api.php endpoint.
func WithAPIURL(u string) WikipediaOption {
	return func(w *Wikipedia) {
		if u != "" {
			w.apiURL = u
		}
	}
}

// WithLang selects the language edition. Ignored when WithAPIURL is set
// after it.
func WithLang(lang string) WikipediaOption {
	return func(w *Wikipedia) {
		if lang != "" {
			w.apiURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
		}
	}
}

// WithTopK sets how many search hits are summarized.
func WithTopK(k int) WikipediaOption {
	return func(w *Wikipedia) {
		if k > 0 {
			w.topK = k
		}
	}
}

// WithMaxChars caps the lookup result at n characters.
func WithMaxChars(n int) WikipediaOption {
	return func(w *Wikipedia) {
		if n > 0 {
			w.maxChars = n
		}
	}
}

func WithHTTPClient(c *http.Client) WikipediaOption {
	return func(w *Wikipedia) { w.client = c }
}

func NewWikipedia(opts ...WikipediaOption) *Wikipedia {
	w := &Wikipedia{
		client:   trace.HTTPClient(),
		apiURL:   "https://en.wikipedia.org/w/api.php",
		topK:     3,
		maxChars: 4000,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// APIURL identifies the wiki this client talks to.
func (w *Wikipedia) APIURL() string { return w.apiURL }

// Lookup returns "Page: <title>\nSummary: <intro>" blocks for the best
// matches of query. Network and API errors are returned unchanged in kind;
// nothing is retried.
func (w *Wikipedia) Lookup(ctx context.Context, query string) (string, error) {
	query = textutil.Truncate(strings.TrimSpace(query), maxQueryLength)
	if query == "" {
		return noResults, nil
	}

	slog.Debug("wikipedia: searching", "query", query, "top_k", w.topK)

	titles, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return noResults, nil
	}

	extracts, err := w.extracts(ctx, titles)
	if err != nil {
		return "", err
	}

	var blocks []string
	for _, title := range titles {
		extract, ok := extracts[title]
		if !ok || extract == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Page: %s\nSummary: %s", title, extract))
	}
	if len(blocks) == 0 {
		return noResults, nil
	}

	slog.Debug("wikipedia: search done", "query", query, "pages", len(blocks))
	return textutil.Truncate(strings.Join(blocks, "\n\n"), w.maxChars), nil
}

func (w *Wikipedia) search(ctx context.Context, query string) ([]string, error) {
	body, err := w.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(w.topK)},
		"srprop":   {""},
	})
	if err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}

	var titles []string
	for _, t := range gjson.GetBytes(body, "query.search.#.title").Array() {
		titles = append(titles, t.String())
	}
	return titles, nil
}

// extracts fetches the plain-text intro of each title, keyed by the title
// as requested (redirect targets are mapped back to their source).
func (w *Wikipedia) extracts(ctx context.Context, titles []string) (map[string]string, error) {
	body, err := w.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exlimit":     {fmt.Sprint(len(titles))},
		"redirects":   {"1"},
		"titles":      {strings.Join(titles, "|")},
	})
	if err != nil {
		return nil, fmt.Errorf("wikipedia extracts: %w", err)
	}

	resolved := make(map[string]string)
	for _, r := range gjson.GetBytes(body, "query.redirects").Array() {
		resolved[r.Get("to").String()] = r.Get("from").String()
	}

	out := make(map[string]string, len(titles))
	for _, page := range gjson.GetBytes(body, "query.pages").Array() {
		if page.Get("missing").Bool() {
			continue
		}
		title := page.Get("title").String()
		if from, ok := resolved[title]; ok {
			title = from
		}
		out[title] = strings.TrimSpace(page.Get("extract").String())
	}
	return out, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "wikichat/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	if apiErr := gjson.GetBytes(body, "error.info"); apiErr.Exists() {
		return nil, fmt.Errorf("api error: %s", apiErr.String())
	}
	return body, nil
}
